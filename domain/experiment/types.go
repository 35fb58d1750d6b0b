package experiment

import (
	"fmt"

	"ablab/domain/core"
)

// MetricKind classifies a metric for test selection
type MetricKind string

const (
	KindBinary      MetricKind = "binary"
	KindCount       MetricKind = "count"
	KindContinuous  MetricKind = "continuous"
	KindCategorical MetricKind = "categorical"
)

// MetricDescriptor is the static declaration of one metric.
// Declaration order matters: it breaks ties when correction batches
// are sorted by raw p-value.
type MetricDescriptor struct {
	Key  core.MetricKey `json:"key" yaml:"key"`
	Kind MetricKind     `json:"kind" yaml:"kind"`
}

// Config is the static per-experiment configuration surface:
// declared allocation ratio, experiment window, power-analysis inputs
// and the metric declarations. Supplied up front, never discovered.
type Config struct {
	ID           core.ExperimentID           `json:"id" yaml:"id"`
	Name         string                      `json:"name" yaml:"name"`
	SourceFile   string                      `json:"source_file" yaml:"source_file"`
	Allocation   map[core.VariantKey]float64 `json:"allocation" yaml:"allocation"`
	StartDate    core.Timestamp              `json:"start_date" yaml:"start_date"`
	EndDate      core.Timestamp              `json:"end_date" yaml:"end_date"`
	TargetMDE    float64                     `json:"target_mde" yaml:"target_mde"`
	BaselineRate float64                     `json:"baseline_rate" yaml:"baseline_rate"`
	Alpha        float64                     `json:"alpha" yaml:"alpha"`
	Power        float64                     `json:"power" yaml:"power"`
	Metrics      []MetricDescriptor          `json:"metrics" yaml:"metrics"`
	Covariates   []string                    `json:"covariates" yaml:"covariates"`
}

// Defaults used when the manifest leaves power-analysis inputs unset.
const (
	DefaultAlpha        = 0.05
	DefaultPower        = 0.8
	DefaultTargetMDE    = 0.05
	DefaultBaselineRate = 0.5
)

// ApplyDefaults fills unset numeric fields with the standard assumptions.
func (c *Config) ApplyDefaults() {
	if c.Alpha == 0 {
		c.Alpha = DefaultAlpha
	}
	if c.Power == 0 {
		c.Power = DefaultPower
	}
	if c.TargetMDE == 0 {
		c.TargetMDE = DefaultTargetMDE
	}
	if c.BaselineRate == 0 {
		c.BaselineRate = DefaultBaselineRate
	}
}

// Validate checks the configuration invariants
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("experiment ID is required")
	}
	if len(c.Allocation) < 2 {
		return fmt.Errorf("experiment %s: at least 2 variants required, got %d", c.ID, len(c.Allocation))
	}
	total := 0.0
	for variant, share := range c.Allocation {
		if share <= 0 {
			return fmt.Errorf("experiment %s: variant %s has non-positive allocation %f", c.ID, variant, share)
		}
		total += share
	}
	if total < 0.999 || total > 1.001 {
		return fmt.Errorf("experiment %s: allocation shares sum to %f, want 1.0", c.ID, total)
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("experiment %s: end date before start date", c.ID)
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("experiment %s: at least one metric declaration required", c.ID)
	}
	seen := make(map[core.MetricKey]bool, len(c.Metrics))
	for _, m := range c.Metrics {
		if m.Key == "" {
			return fmt.Errorf("experiment %s: metric key cannot be empty", c.ID)
		}
		if seen[m.Key] {
			return fmt.Errorf("experiment %s: duplicate metric declaration %s", c.ID, m.Key)
		}
		seen[m.Key] = true
		switch m.Kind {
		case KindBinary, KindCount, KindContinuous, KindCategorical:
		default:
			return fmt.Errorf("experiment %s: metric %s has unknown kind %q", c.ID, m.Key, m.Kind)
		}
	}
	return nil
}

// VariantCount returns the number of declared variants
func (c *Config) VariantCount() int {
	return len(c.Allocation)
}

// Session is one row of an experiment dataset
type Session struct {
	SessionID  core.SessionID
	UserID     core.UserID
	Timestamp  core.Timestamp
	Variant    core.VariantKey
	DeviceType string
	Browser    string
	Region     string
	Metrics    map[core.MetricKey]float64
}

// CovariateValue returns the named demographic covariate for this session
func (s *Session) CovariateValue(name string) string {
	switch name {
	case "device_type":
		return s.DeviceType
	case "browser":
		return s.Browser
	case "region":
		return s.Region
	default:
		return ""
	}
}
