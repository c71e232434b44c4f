package httpapi

import (
	"net/http"
	"time"

	"jobcrawl-engine/internal/store"
)

type HealthHandler struct {
	Store store.Store
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	}
	if h.Store != nil {
		n, err := h.Store.Count(r.Context())
		if err != nil {
			WriteError(w, r, http.StatusServiceUnavailable, "store_unavailable", err.Error())
			return
		}
		resp["jobs"] = n
	}
	WriteJSON(w, http.StatusOK, resp)
}
