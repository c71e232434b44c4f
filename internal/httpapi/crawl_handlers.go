package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"jobcrawl-engine/internal/poll"
)

type CrawlHandler struct {
	Crawler Crawler
	BaseCtx context.Context
}

type runRequest struct {
	Keywords []string `json:"keywords"`
	Pages    int      `json:"pages"`
	Export   bool     `json:"export"`
}

func (h CrawlHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Crawler.Status())
}

// Run starts a crawl in the background. The body is optional.
func (h CrawlHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	if req.Pages < 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_pages", "pages must be >= 0")
		return
	}

	err := h.Crawler.Start(h.BaseCtx, poll.Options{Keywords: req.Keywords, PageLimit: req.Pages, Export: req.Export})
	if errors.Is(err, poll.ErrAlreadyRunning) {
		WriteError(w, r, http.StatusConflict, "already_running", err.Error())
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "start_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
