package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// handleIngest handles POST /api/archivos. The body may be one document, an
// array of documents or newline-delimited documents.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest"
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
		} else {
			err = badRequest("reading body: %v", err)
		}
		s.writeServiceError(w, r, op, err)
		return
	}

	res, err := s.deps.Ingest(r.Context(), body)
	// Stored documents purge again through StoreNotifier.
	if res.Accepted > 0 {
		s.cache.Purge()
	}
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// handleListDocuments handles GET /api/archivos?limit=N.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_documents"
	limit, err := s.limitParam(r)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	docs, err := s.deps.ListDocuments(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(docs))
}

// handleDocument handles GET /api/archivos/{id}.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, "api.document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleDetails handles GET /api/archivos/{id}/detalles.
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.deps.Details(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, "api.details", err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// handleAllDetails handles GET /api/archivos/detalles?limit=N.
func (s *Server) handleAllDetails(w http.ResponseWriter, r *http.Request) {
	const op = "api.all_details"
	limit, err := s.limitParam(r)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	details, err := s.deps.AllDetails(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(details))
}
