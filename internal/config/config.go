package config

import (
	"os"
	"path/filepath"
	"strings"

	"AcevalImport/internal/pipeline"
)

const (
	DefaultTimeZone        = "America/Caracas"
	DefaultOutputDir       = "./outputs"
	DefaultResumenSchedule = "0 */6 * * *"
	DefaultPort            = "8080"

	// Upload limit for the product and receipt tables.
	MaxUploadBytes = 32 << 20
)

// Config holds the filesystem layout of the snapshot and summary outputs.
type Config struct {
	OutputDir  string
	ResumenDir string
	Port       string

	stageDirs map[pipeline.Stage]string
}

// Load reads ACEVAL_OUTPUT_DIR, ACEVAL_ETAPA_<I..IV>_DIR, ACEVAL_RESUMEN_DIR
// and ACEVAL_PORT. Unset stage directories fall back to <output>/<N>_ETAPA.
func Load() Config {
	c := Config{
		OutputDir: env("ACEVAL_OUTPUT_DIR", DefaultOutputDir),
		Port:      env("ACEVAL_PORT", DefaultPort),
		stageDirs: make(map[pipeline.Stage]string, len(pipeline.Stages)),
	}
	c.ResumenDir = env("ACEVAL_RESUMEN_DIR", filepath.Join(c.OutputDir, "RESUMEN"))
	for _, st := range pipeline.Stages {
		c.stageDirs[st] = env("ACEVAL_ETAPA_"+st.Roman()+"_DIR", filepath.Join(c.OutputDir, st.DirName()))
	}
	return c
}

// StageDir returns the snapshot directory for st.
func (c Config) StageDir(st pipeline.Stage) string {
	if d, ok := c.stageDirs[st]; ok {
		return d
	}
	return filepath.Join(c.OutputDir, st.DirName())
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
