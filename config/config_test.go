package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().MaxLagOrder, cfg.MaxLagOrder)
	assert.Equal(t, FamilyNormal, cfg.Residual.Family)
	assert.Equal(t, CorrectionBonferroni, cfg.Causality.Correction)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
max_lag_order: 8
information_criterion: bic
residual:
  family: student-t
  dof: 7
risk:
  tolerance: 0.08
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxLagOrder)
	assert.Equal(t, BIC, cfg.InformationCriterion)
	assert.Equal(t, FamilyStudentT, cfg.Residual.Family)
	assert.Equal(t, 7.0, cfg.Residual.DOF)
	assert.Equal(t, 0.08, cfg.Risk.Tolerance)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Optimizer.OrderingCost, cfg.Optimizer.OrderingCost)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max lag", func(c *Config) { c.MaxLagOrder = 0 }},
		{"bad criterion", func(c *Config) { c.InformationCriterion = "hqic" }},
		{"confidence at 1", func(c *Config) { c.ConfidenceLevel = 1 }},
		{"min obs below lag", func(c *Config) { c.MinObservations = c.MaxLagOrder }},
		{"student-t dof too small", func(c *Config) {
			c.Residual.Family = FamilyStudentT
			c.Residual.DOF = 2
		}},
		{"unknown family", func(c *Config) { c.Residual.Family = "cauchy" }},
		{"unknown correction", func(c *Config) { c.Causality.Correction = "fdr" }},
		{"inverted vol bands", func(c *Config) {
			c.Risk.LowVol = 0.05
			c.Risk.HighVol = 0.01
		}},
		{"min order above capacity", func(c *Config) {
			c.Optimizer.MinOrder = 10
			c.Optimizer.MaxCapacity = 5
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
