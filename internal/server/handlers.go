package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"piggyvault-indexer/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// paging reads limit/offset query parameters. Absent or invalid values fall
// back to the storage default from the start.
func paging(r *http.Request) (limit, offset int) {
	limit = storage.DefaultListLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func bankFilter(r *http.Request) *string {
	if v := r.URL.Query().Get("bank_id"); v != "" {
		return &v
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleGetBank(w http.ResponseWriter, r *http.Request) {
	bank, err := s.store.GetBank(r.Context(), chi.URLParam(r, "bankID"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if bank == nil {
		s.writeError(w, http.StatusNotFound, "bank not found")
		return
	}
	s.writeJSON(w, http.StatusOK, bankResponseFrom(bank))
}

func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	deposits, err := s.store.ListDepositsByBank(r.Context(), chi.URLParam(r, "bankID"), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	items := make([]depositResponse, 0, len(deposits))
	for i := range deposits {
		items = append(items, depositResponseFrom(&deposits[i]))
	}
	writeList(s, w, items, limit, offset)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.store.GetWithdrawalRequestByID(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if req == nil {
		s.writeError(w, http.StatusNotFound, "withdrawal request not found")
		return
	}
	s.writeJSON(w, http.StatusOK, requestResponseFrom(req))
}

func (s *Server) handleListRequestsByBank(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	requests, err := s.store.ListWithdrawalRequestsByBank(r.Context(), chi.URLParam(r, "bankID"), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeRequestList(w, requests, limit, offset)
}

func (s *Server) handleListRequestsByRequester(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	requests, err := s.store.ListWithdrawalRequestsByRequester(r.Context(), chi.URLParam(r, "requester"), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeRequestList(w, requests, limit, offset)
}

func (s *Server) handleListRequestsByStatus(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "status")
	switch status {
	case storage.StatusPending, storage.StatusApproved, storage.StatusRejected, storage.StatusCompleted:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	limit, offset := paging(r)
	requests, err := s.store.ListWithdrawalRequestsByStatus(r.Context(), status, limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeRequestList(w, requests, limit, offset)
}

func (s *Server) handleRequestStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.WithdrawalRequestStats(r.Context(), bankFilter(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetCompletion(w http.ResponseWriter, r *http.Request) {
	completion, err := s.store.GetCompletionByRequestID(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if completion == nil {
		s.writeError(w, http.StatusNotFound, "completed withdrawal not found")
		return
	}
	s.writeJSON(w, http.StatusOK, completionResponseFrom(completion))
}

func (s *Server) handleListCompletionsByBank(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	completions, err := s.store.ListCompletionsByBank(r.Context(), chi.URLParam(r, "bankID"), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeCompletionList(w, completions, limit, offset)
}

func (s *Server) handleListCompletionsByWithdrawer(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	completions, err := s.store.ListCompletionsByWithdrawer(r.Context(), chi.URLParam(r, "withdrawer"), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeCompletionList(w, completions, limit, offset)
}

func (s *Server) handleCompletionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.CompletionStats(r.Context(), bankFilter(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func writeList[T any](s *Server, w http.ResponseWriter, items []T, limit, offset int) {
	s.writeJSON(w, http.StatusOK, listResponse[T]{
		Items:  items,
		Count:  len(items),
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) writeRequestList(w http.ResponseWriter, requests []storage.WithdrawalRequestRecord, limit, offset int) {
	items := make([]requestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, requestResponseFrom(&requests[i]))
	}
	writeList(s, w, items, limit, offset)
}

func (s *Server) writeCompletionList(w http.ResponseWriter, completions []storage.WithdrawalCompletedRecord, limit, offset int) {
	items := make([]completionResponse, 0, len(completions))
	for i := range completions {
		items = append(items, completionResponseFrom(&completions[i]))
	}
	writeList(s, w, items, limit, offset)
}
