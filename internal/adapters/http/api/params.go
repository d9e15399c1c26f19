package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// maxDays bounds the days query parameter.
const maxDays = 3650

// limitParam reads limit, falling back to the server default. Values above
// the maximum are refused rather than clamped.
func (s *Server) limitParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return s.defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest("limit must be a positive integer")
	}
	if n > s.maxLimit {
		return 0, fmt.Errorf("%w: %d is above the maximum of %d", ErrLimitExceeded, n, s.maxLimit)
	}
	return n, nil
}

// daysParam reads days, falling back to def.
func daysParam(r *http.Request, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxDays {
		return 0, badRequest("days must be an integer between 1 and %d", maxDays)
	}
	return n, nil
}

// priceParam reads an optional non-negative price bound.
func priceParam(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil //nolint:nilnil // absent bound
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, badRequest("%s must be a non-negative number", name)
	}
	return &v, nil
}

// listParam accepts repeated and comma-separated values.
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
