package seeding

import "os"

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	os.Stdout.WriteString(`Arryn seed tool
===============

Generates synthetic scraped listings, posts them to /api/archivos and checks
that /api/ranked-offers and /api/trending-offers come back in descending order.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string        Base URL of the service (default "http://localhost:8000")
  -documents int     Number of documents to generate (default 1000)
  -batch int         Documents per request (default 100)
  -workers int       Concurrent submitters (default CPU cores)
  -days int          Spread extraction dates over this many days (default 14)
  -limit int         limit used when reading the ranked views (default 20)
  -seed uint         Random seed (default: current time)
  -timeout duration  HTTP request timeout (default 30s)
  -wait duration     How long to wait for documents to be stored (default 30s)
  -output string     Write generated documents to this JSON file
  -verbose           Log every batch
  -help              Show this help message
`)
}
