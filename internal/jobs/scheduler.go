package jobs

import (
	"log"
	"strings"
	"sync"
	"time"

	"AcevalImport/internal/config"
	"AcevalImport/internal/dashboard"
	"AcevalImport/internal/serviceiface"

	"github.com/robfig/cron/v3"
)

// ResumenService rebuilds the stage summaries on a cron schedule.
type ResumenService struct {
	config map[string]interface{}
	app    config.Config
	cron   *cron.Cron

	mu       sync.Mutex
	lastRun  time.Time
	lastErr  error
	lastOut  []string
	schedule string
}

func NewResumenService(cfg map[string]interface{}, app config.Config) serviceiface.Service {
	return &ResumenService{
		config: cfg,
		app:    app,
	}
}

func (s *ResumenService) Name() string {
	return "resumen"
}

func (s *ResumenService) Start() error {
	log.Println("[INFO] Starting summary service...")

	cfg := NewDefaultResumenConfig()
	// Override from services.yaml if provided
	if s.config != nil {
		if v, ok := s.config["schedule"].(string); ok && v != "" {
			cfg.Schedule = v
		}
		if v, ok := s.config["timezone"].(string); ok && v != "" {
			cfg.TimeZone = v
		}
		if v, ok := s.config["metrica"].(string); ok && v != "" {
			cfg.Metric = v
		}
		if v, ok := s.config["agrupar"].(string); ok && v != "" {
			cfg.GroupBy = strings.Split(v, ",")
		}
	}

	c, err := RunResumenScheduler(cfg, s.app, s.record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cron = c
	s.schedule = cfg.Schedule
	s.mu.Unlock()
	return nil
}

func (s *ResumenService) Stop() error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	log.Println("[INFO] Summary service stopped.")
	return nil
}

func (s *ResumenService) record(files []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.lastOut = files
	ev := dashboard.Event{Type: dashboard.EventSummaryRebuilt, Files: files, Time: s.lastRun}
	if err != nil {
		ev.Error = err.Error()
	}
	dashboard.Publish(ev)
}

// Status reports the schedule and the outcome of the last rebuild.
func (s *ResumenService) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := map[string]interface{}{
		"schedule": s.schedule,
		"running":  s.cron != nil,
		"files":    s.lastOut,
	}
	if !s.lastRun.IsZero() {
		st["last_run"] = s.lastRun.Format(time.RFC3339)
	}
	if s.lastErr != nil {
		st["last_error"] = s.lastErr.Error()
	}
	return st
}
