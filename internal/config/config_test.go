package config

import (
	"path/filepath"
	"testing"

	"AcevalImport/internal/pipeline"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACEVAL_OUTPUT_DIR", "")
	t.Setenv("ACEVAL_ETAPA_II_DIR", "")
	t.Setenv("ACEVAL_RESUMEN_DIR", "")
	t.Setenv("ACEVAL_PORT", "")

	c := Load()
	assert.Equal(t, DefaultOutputDir, c.OutputDir)
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, filepath.Join(DefaultOutputDir, "II_ETAPA"), c.StageDir(pipeline.StageBanking))
	assert.Equal(t, filepath.Join(DefaultOutputDir, "RESUMEN"), c.ResumenDir)
}

func TestLoadOverrides(t *testing.T) {
	base := t.TempDir()
	t.Setenv("ACEVAL_OUTPUT_DIR", base)
	t.Setenv("ACEVAL_ETAPA_IV_DIR", "/srv/cierre")
	t.Setenv("ACEVAL_ETAPA_I_DIR", "")
	t.Setenv("ACEVAL_PORT", "9090")

	c := Load()
	assert.Equal(t, "/srv/cierre", c.StageDir(pipeline.StageReconciliation))
	assert.Equal(t, filepath.Join(base, "I_ETAPA"), c.StageDir(pipeline.StageIntake))
	assert.Equal(t, "9090", c.Port)
}
