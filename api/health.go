package api

import (
	"net/http"
	"sync"

	"AcevalImport/internal/pipeline"
	"AcevalImport/internal/serviceiface"
)

var (
	reportersMu sync.RWMutex
	reporters   = map[string]serviceiface.Reporter{}
)

// RegisterReporter exposes a service's status on /api/health.
func RegisterReporter(name string, r serviceiface.Reporter) {
	reportersMu.Lock()
	defer reportersMu.Unlock()
	reporters[name] = r
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	reportersMu.RLock()
	services := make(map[string]interface{}, len(reporters))
	for name, rep := range reporters {
		services[name] = rep.Status()
	}
	reportersMu.RUnlock()

	dirs := make(map[string]string, len(pipeline.Stages))
	for _, st := range pipeline.Stages {
		dirs[st.Roman()] = h.app.StageDir(st)
	}
	RespondWithPayload(w, true, "", map[string]interface{}{
		"status":    "ok",
		"services":  services,
		"snapshots": dirs,
		"resumen":   h.app.ResumenDir,
	})
}
