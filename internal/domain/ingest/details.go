package ingest

import (
	"strings"

	"github.com/arryn/arryn/internal/domain/model"
)

// ParseDetails turns the free-text detalles field into key/value pairs.
// Each line is split on the first colon, or on the first space when there
// is no colon. Lines without either are skipped; later keys win.
func ParseDetails(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			key, value, ok = strings.Cut(line, " ")
		}
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out
}

// Fingerprint identifies one observation of a listing: the same product link
// (or title and source when there is no link) seen on the same day.
func Fingerprint(doc model.Document) string {
	key := strings.TrimSpace(doc.Link)
	if key == "" {
		key = strings.ToLower(doc.Title) + "|" + doc.Source
	}
	day := "-"
	if doc.ExtractedAt != nil {
		day = doc.ExtractedAt.String()
	}
	return key + "|" + day
}
