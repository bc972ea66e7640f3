package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

type VersionHandler struct{}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version": Version,
		"go":      runtime.Version(),
	})
}
