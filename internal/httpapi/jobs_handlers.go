package httpapi

import (
	"net/http"
	"strconv"

	"jobcrawl-engine/internal/store"
)

const maxListLimit = 5000

type JobsHandler struct {
	Store store.Store
}

// List serves GET /jobs?sort=&window=&keyword=&limit=.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 500
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			WriteError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	window := q.Get("window")
	if window == "" {
		window = "7d"
	}

	jobs, err := h.Store.List(r.Context(), store.ListOpts{
		Sort:    q.Get("sort"),
		Window:  window,
		Keyword: q.Get("keyword"),
		Limit:   limit,
	})
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if jobs == nil {
		jobs = []store.Job{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}
