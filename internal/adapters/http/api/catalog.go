package api

import (
	"net/http"

	service "github.com/arryn/arryn/internal/app"
)

// handleBrands handles GET /api/brands?category=C.
func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.deps.Brands(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeServiceError(w, r, "api.brands", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(brands))
}

// handleCategories handles GET /api/categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Categories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "api.categories", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(categories))
}

// handleOffers handles GET /api/offers/{category}?limit=N.
func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	const op = "api.offers"
	limit, err := s.limitParam(r)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	offers, err := s.deps.OffersByCategory(r.Context(), r.PathValue("category"), limit)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(offers))
}

// handleBestPrices handles
// GET /api/best-prices/{category}?brands=A,B&min_price=X&max_price=Y&limit=N.
func (s *Server) handleBestPrices(w http.ResponseWriter, r *http.Request) {
	const op = "api.best_prices"
	limit, err := s.limitParam(r)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	minPrice, err := priceParam(r, "min_price")
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	maxPrice, err := priceParam(r, "max_price")
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	filter := service.BestPriceFilter{
		Brands:   listParam(r, "brands"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}
	offers, err := s.deps.BestPrices(r.Context(), r.PathValue("category"), filter, limit)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(offers))
}
