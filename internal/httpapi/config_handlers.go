package httpapi

import (
	"net/http"
	"path/filepath"

	"jobcrawl-engine/internal/config"
)

type ConfigHandler struct {
	Cfg         config.Config
	UserCfgPath string
}

// Get returns the active config. Secrets are never serialized.
func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	abs, _ := filepath.Abs(h.UserCfgPath)
	WriteJSON(w, http.StatusOK, map[string]any{"path": abs, "config": h.Cfg})
}

func (h ConfigHandler) Validate(w http.ResponseWriter, r *http.Request) {
	_, vr := config.NormalizeAndValidate(h.Cfg)
	WriteJSON(w, http.StatusOK, vr)
}
