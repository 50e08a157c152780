package resource

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"AcevalImport/internal/config"
	"AcevalImport/internal/logger"
	"AcevalImport/internal/pipeline"
	"AcevalImport/internal/serviceiface"
	"AcevalImport/internal/snapshot"
)

// DirState is the last heartbeat observation of one output directory.
type DirState struct {
	Path      string    `json:"path"`
	Snapshots int       `json:"snapshots"`
	Writable  bool      `json:"writable"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// ResourceManager watches the stage and summary directories on a heartbeat,
// creating them when missing and reporting which ones cannot be written.
type ResourceManager struct {
	resources         map[string]DirState
	dirs              map[string]string
	mu                sync.RWMutex
	stopChan          chan struct{}
	stopOnce          sync.Once
	heartbeatInterval time.Duration
}

func NewResourceManagerService(cfg map[string]interface{}, app config.Config) serviceiface.Service {
	interval := 5 * time.Minute
	if val, ok := cfg["heartbeat_interval"]; ok {
		switch v := val.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				interval = d
			}
		case int:
			interval = time.Duration(v) * time.Second
		case float64:
			interval = time.Duration(v) * time.Second
		}
	}
	dirs := map[string]string{"RESUMEN": app.ResumenDir}
	for _, st := range pipeline.Stages {
		dirs[st.Tag()] = app.StageDir(st)
	}
	return &ResourceManager{
		resources:         make(map[string]DirState, len(dirs)),
		dirs:              dirs,
		stopChan:          make(chan struct{}),
		heartbeatInterval: interval,
	}
}

func (rm *ResourceManager) Name() string { return "resourcemanager" }

// Start runs one check synchronously so the first status is never empty.
func (rm *ResourceManager) Start() error {
	rm.Check()
	logger.Audit("ResourceManager started, heartbeat every %s", rm.heartbeatInterval)
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	rm.stopOnce.Do(func() { close(rm.stopChan) })
	return nil
}

func (rm *ResourceManager) heartbeatLoop() {
	ticker := time.NewTicker(rm.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case <-ticker.C:
			rm.Check()
		}
	}
}

// Check inspects every watched directory once.
func (rm *ResourceManager) Check() {
	now := time.Now()
	for key, dir := range rm.dirs {
		state := inspect(dir)
		state.CheckedAt = now
		if state.Error != "" {
			logger.Audit("heartbeat: %s (%s) %s", key, dir, state.Error)
		}
		rm.mu.Lock()
		rm.resources[key] = state
		rm.mu.Unlock()
	}
}

func inspect(dir string) DirState {
	state := DirState{Path: dir}
	if err := os.MkdirAll(dir, 0755); err != nil {
		state.Error = err.Error()
		return state
	}
	beat, err := os.CreateTemp(dir, ".heartbeat-*")
	if err != nil {
		state.Error = fmt.Sprintf("not writable: %v", err)
	} else {
		beat.Close()
		os.Remove(beat.Name())
		state.Writable = true
	}
	files, err := snapshot.List(dir)
	if err != nil {
		state.Error = err.Error()
		return state
	}
	state.Snapshots = len(files)
	return state
}

func (rm *ResourceManager) GetResource(key string) (DirState, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, exists := rm.resources[key]
	return r, exists
}

func (rm *ResourceManager) ListResources() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	keys := make([]string, 0, len(rm.resources))
	for key := range rm.resources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Status reports the last observation of every directory.
func (rm *ResourceManager) Status() map[string]interface{} {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make(map[string]interface{}, len(rm.resources))
	for key, r := range rm.resources {
		out[key] = r
	}
	return out
}

var _ serviceiface.Reporter = (*ResourceManager)(nil)
