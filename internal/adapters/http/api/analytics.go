package api

import (
	"net/http"
)

// handlePriceComparison handles GET /api/price-comparison?q=TEXT.
func (s *Server) handlePriceComparison(w http.ResponseWriter, r *http.Request) {
	cmp, err := s.deps.PriceComparison(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, "api.price_comparison", err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// handleRankedOffers handles GET /api/ranked-offers?category=C&limit=N.
func (s *Server) handleRankedOffers(w http.ResponseWriter, r *http.Request) {
	const op = "api.ranked_offers"
	limit, err := s.limitParam(r)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	ranked, err := s.deps.RankOffers(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(ranked))
}

// handleTrendingOffers handles GET /api/trending-offers?days=D&limit=N.
func (s *Server) handleTrendingOffers(w http.ResponseWriter, r *http.Request) {
	const op = "api.trending_offers"
	limit, err := s.limitParam(r)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	days, err := daysParam(r, s.trendingDays)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	trending, err := s.deps.TrendingOffers(r.Context(), days, limit)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(trending))
}

// handleStoreReport handles GET /api/reports/stores?category=C&days=D.
func (s *Server) handleStoreReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.store_report"
	days, err := daysParam(r, s.reportDays)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	report, err := s.deps.StoreReport(r.Context(), r.URL.Query().Get("category"), days)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	report.Stores = orEmpty(report.Stores)
	writeJSON(w, http.StatusOK, report)
}

// handlePriceReport handles GET /api/reports/prices/{category}?days=D.
func (s *Server) handlePriceReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.price_report"
	days, err := daysParam(r, s.reportDays)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	report, err := s.deps.PriceReport(r.Context(), r.PathValue("category"), days)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
