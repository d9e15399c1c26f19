// Package ingest decodes and normalizes scraped listing payloads.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const maxLineBytes = 4 << 20

var errTrailingData = errors.New("trailing data after JSON value")

// Parse splits a request body into raw records. It accepts a single JSON
// object, a JSON array, or newline-delimited JSON objects. Array elements
// that are not objects are returned as nil so callers can report them by
// position.
func Parse(body []byte) ([]map[string]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}

	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if len(items) == 0 {
			return nil, ErrEmptyPayload
		}
		out := make([]map[string]any, len(items))
		for i, item := range items {
			var rec map[string]any
			if err := unmarshal(item, &rec); err == nil {
				out[i] = rec
			}
		}
		return out, nil
	case '{':
		var rec map[string]any
		if err := unmarshal(body, &rec); err == nil {
			return []map[string]any{rec}, nil
		}
		return parseLines(body)
	default:
		return nil, fmt.Errorf("%w: expected object, array or NDJSON", ErrMalformed)
	}
}

func parseLines(body []byte) ([]map[string]any, error) {
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec map[string]any
		if err := unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyPayload
	}
	return out, nil
}

func unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
