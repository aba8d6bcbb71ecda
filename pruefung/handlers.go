package pruefung

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the HTTP surface of the audit engine, mounted by the
// service main under /api.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/projects/{project}", func(r chi.Router) {
		r.Put("/criteria", s.handlePutCriteria)
		r.Get("/criteria", s.handleGetCriteria)
		r.Post("/sync", s.handleSyncProject)
		r.Post("/bidders", s.handleAddBidder)
		r.Get("/bidders", s.handleListBidders)

		r.Route("/bidders/{bidder}", func(r chi.Router) {
			r.Post("/sync", s.handleSyncBidder)
			r.Get("/record", s.handleGetRecord)
			r.Get("/entries", s.handleListEntries)
			r.Get("/next", s.handleNextOpen)
			r.Post("/criteria/{criterion}/events", s.handleRecordReview)
		})
	})

	return r
}

func (s *Service) handlePutCriteria(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req struct {
		Criteria []Criterion `json:"criteria"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.PutCriteria(r.Context(), chi.URLParam(r, "project"), req.Criteria); err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Service) handleGetCriteria(w http.ResponseWriter, r *http.Request) {
	criteria, err := s.Criteria(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if criteria == nil {
		criteria = []Criterion{}
	}
	writeJSON(w, criteria)
}

func (s *Service) handleSyncProject(w http.ResponseWriter, r *http.Request) {
	results, err := s.SyncProject(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, results)
}

func (s *Service) handleAddBidder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 32*1024)

	var req struct {
		BidderID string `json:"bidder_id"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.AddBidder(r.Context(), chi.URLParam(r, "project"), req.BidderID, req.Name); err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Service) handleListBidders(w http.ResponseWriter, r *http.Request) {
	bidders, err := s.Bidders(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if bidders == nil {
		bidders = []BidderInfo{}
	}
	writeJSON(w, bidders)
}

func (s *Service) handleSyncBidder(w http.ResponseWriter, r *http.Request) {
	res, err := s.SyncBidder(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "bidder"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Service) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.GetRecord(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "bidder"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Service) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ListEntries(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "bidder"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}
	writeJSON(w, entries)
}

func (s *Service) handleNextOpen(w http.ResponseWriter, r *http.Request) {
	next, err := s.NextOpen(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "bidder"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if next == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, next)
}

func (s *Service) handleRecordReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)

	var in ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}
	entry, err := s.Record(r.Context(),
		chi.URLParam(r, "project"), chi.URLParam(r, "bidder"), chi.URLParam(r, "criterion"), in)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, entry)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeServiceErr maps service errors onto HTTP status codes.
func writeServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		jsonErr(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidKind):
		jsonErr(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrConflict):
		jsonErr(w, err.Error(), http.StatusConflict)
	default:
		jsonErr(w, "internal error", http.StatusInternalServerError)
	}
}
