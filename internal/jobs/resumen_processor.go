package jobs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"AcevalImport/internal/config"
	"AcevalImport/internal/logger"
	"AcevalImport/internal/pipeline"
	"AcevalImport/internal/report"

	"github.com/robfig/cron/v3"
)

// ResumenConfig holds configuration for the dashboard summary rebuild
type ResumenConfig struct {
	Schedule string   // Cron schedule (default: every 6 hours)
	TimeZone string   // Timezone for scheduling
	Metric   string   // Preferred metric, falls back to the first available one
	GroupBy  []string // One or two columns
}

// NewDefaultResumenConfig creates a ResumenConfig from the environment
func NewDefaultResumenConfig() *ResumenConfig {
	schedule := os.Getenv("RESUMEN_SCHEDULE")
	if schedule == "" {
		schedule = config.DefaultResumenSchedule
	}
	tz := os.Getenv("RESUMEN_TIMEZONE")
	if tz == "" {
		tz = config.DefaultTimeZone
	}
	return &ResumenConfig{
		Schedule: schedule,
		TimeZone: tz,
		Metric:   "Total USD Proveedor",
		GroupBy:  []string{"Proveedor"},
	}
}

// RunResumenScheduler schedules RebuildSummaries and starts the cron. The
// returned cron must be stopped by the caller.
func RunResumenScheduler(cfg *ResumenConfig, app config.Config, done func([]string, error)) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
		logger.Audit("Invalid timezone %s, falling back to UTC: %v", cfg.TimeZone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		logger.Audit("Starting summary rebuild at %s", time.Now().In(loc).Format(time.RFC3339))
		files, err := RebuildSummaries(cfg, app)
		if err != nil {
			logger.Audit("Summary rebuild failed: %v", err)
		} else {
			logger.Audit("Summary rebuild wrote %d files", len(files))
		}
		if done != nil {
			done(files, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule summary rebuild: %v", err)
	}

	c.Start()
	logger.Audit("Summary scheduler started with schedule: %s (timezone: %s)", cfg.Schedule, cfg.TimeZone)
	return c, nil
}

// RebuildSummaries consolidates every stage directory and writes one
// RESUMEN_<stage>.xlsx per stage that has snapshots. A failing stage does not
// stop the others; the first error is returned.
func RebuildSummaries(cfg *ResumenConfig, app config.Config) ([]string, error) {
	var (
		files    []string
		firstErr error
	)
	for _, st := range pipeline.Stages {
		path, err := rebuildStage(cfg, app, st)
		if err != nil {
			logger.Audit("Summary for %s failed: %v", st, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", st, err)
			}
			continue
		}
		if path != "" {
			files = append(files, path)
		}
	}
	return files, firstErr
}

func rebuildStage(cfg *ResumenConfig, app config.Config, st pipeline.Stage) (string, error) {
	tbl, err := report.Consolidate(app.StageDir(st))
	if err != nil {
		return "", err
	}
	if len(tbl.Rows) == 0 {
		return "", nil
	}

	var summary report.Summary
	if metric := pickMetric(tbl, cfg.Metric); metric != "" {
		var groupBy []string
		for _, g := range cfg.GroupBy {
			if g = strings.TrimSpace(g); g != "" && tbl.Index(g) >= 0 {
				groupBy = append(groupBy, g)
			}
		}
		if len(groupBy) > 0 {
			if summary, err = report.Summarize(tbl, metric, groupBy); err != nil {
				return "", err
			}
		}
	}
	return report.Export(app.ResumenDir, st, tbl, summary)
}

func pickMetric(tbl report.Table, preferred string) string {
	if preferred != "" && tbl.Index(preferred) >= 0 {
		return preferred
	}
	if avail := report.Available(tbl); len(avail) > 0 {
		return avail[0]
	}
	return ""
}
