package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/userpipe/internal/storage"
)

// TotalCountHeader carries the number of stored results on list responses.
const TotalCountHeader = "X-Total-Count"

func handleListResults(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		if limit == 0 {
			limit = 20
		}
		offset := parseIntParam(r, "offset", 0, 0)

		results, err := deps.Results.ListResults(r.Context(), limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list results: %v", err)
			return
		}
		total, err := deps.Results.CountResults(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count results: %v", err)
			return
		}

		if results == nil {
			results = []storage.Result{}
		}

		w.Header().Set(TotalCountHeader, strconv.Itoa(total))
		writeJSON(w, http.StatusOK, results)
	}
}

func handleGetResult(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "id must be a positive integer")
			return
		}

		result, err := deps.Results.GetResult(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "result not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get result: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
