package source

import (
	"fmt"
	"strings"

	"github.com/arryn/arryn/internal/domain/model"
)

const table = "archivos"

const documentColumns = "id, titulo, marca, precio_texto, precio_valor, moneda, categoria, imagen, link, fuente, fecha_extraccion, detalles"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ` + table + ` (
		seq              BIGSERIAL PRIMARY KEY,
		id               TEXT NOT NULL UNIQUE,
		titulo           TEXT NOT NULL,
		marca            TEXT NOT NULL DEFAULT '',
		precio_texto     TEXT NOT NULL DEFAULT '',
		precio_valor     DOUBLE PRECISION,
		moneda           TEXT NOT NULL DEFAULT '',
		categoria        TEXT NOT NULL DEFAULT '',
		imagen           TEXT NOT NULL DEFAULT '',
		link             TEXT NOT NULL DEFAULT '',
		fuente           TEXT NOT NULL DEFAULT '',
		fecha_extraccion DATE,
		detalles         TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS archivos_categoria_idx ON ` + table + ` (categoria)`,
	`CREATE INDEX IF NOT EXISTS archivos_marca_idx ON ` + table + ` (marca)`,
	`CREATE INDEX IF NOT EXISTS archivos_precio_idx ON ` + table + ` (precio_valor)`,
	`CREATE INDEX IF NOT EXISTS archivos_fuente_idx ON ` + table + ` (fuente)`,
	`CREATE INDEX IF NOT EXISTS archivos_fecha_idx ON ` + table + ` (fecha_extraccion DESC)`,
	`CREATE INDEX IF NOT EXISTS archivos_cat_precio_fecha_idx ON ` + table + ` (categoria, precio_valor, fecha_extraccion DESC)`,
	`CREATE INDEX IF NOT EXISTS archivos_titulo_lower_idx ON ` + table + ` (lower(titulo))`,
}

const insertSQL = `INSERT INTO ` + table + ` (` + documentColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO NOTHING`

const selectByIDSQL = `SELECT ` + documentColumns + ` FROM ` + table + ` WHERE id = $1`

const countSQL = `SELECT count(*) FROM ` + table

// buildDocumentsQuery renders q as a parameterized SELECT.
func buildDocumentsQuery(q Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if q.Category != "" {
		add("categoria = $%d", q.Category)
	}
	if q.PricedOnly {
		where = append(where, "precio_valor IS NOT NULL")
	}
	if q.Since != nil {
		add("fecha_extraccion >= $%d", q.Since.Time())
	}
	if len(q.Brands) > 0 {
		brands := make([]string, len(q.Brands))
		for i, b := range q.Brands {
			brands[i] = strings.ToUpper(b)
		}
		add("upper(marca) = ANY($%d)", brands)
	}
	if q.MinPrice != nil {
		add("precio_valor >= $%d", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		add("precio_valor <= $%d", *q.MaxPrice)
	}
	if q.TitleContains != "" {
		add(`titulo ILIKE $%d ESCAPE '\'`, "%"+escapeLike(q.TitleContains)+"%")
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + documentColumns + " FROM " + table)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY seq")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}

// buildFacetQuery counts documents per value of a whitelisted column. Ties
// are ordered bytewise so both sources agree.
func buildFacetQuery(field, category string) (string, []any, error) {
	if _, err := facetValue(field, model.Document{}); err != nil {
		return "", nil, err
	}
	var args []any
	where := field + " <> ''"
	if category != "" {
		args = append(args, category)
		where += " AND categoria = $1"
	}
	sql := fmt.Sprintf("SELECT %s, count(*) FROM %s WHERE %s GROUP BY %s ORDER BY count(*) DESC, %s COLLATE \"C\"",
		field, table, where, field, field)
	return sql, args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
