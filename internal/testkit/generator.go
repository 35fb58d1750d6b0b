// Package testkit generates deterministic synthetic experiment data
// for tests and demos. The same seed always yields the same dataset.
package testkit

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"ablab/domain/core"
	"ablab/domain/experiment"
)

// GeneratorConfig configures the synthetic session generator
type GeneratorConfig struct {
	ExperimentID  core.ExperimentID
	Variants      map[core.VariantKey]float64 // allocation shares
	SessionCount  int
	StartDate     time.Time
	EndDate       time.Time
	Seed          int64
	Conversion    map[core.VariantKey]float64 // per-variant conversion rate
	RevenueMean   map[core.VariantKey]float64 // lognormal-ish revenue scale
	PageViewsMean float64
}

// DefaultConfig returns a balanced two-variant experiment
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		ExperimentID: "exp_synthetic",
		Variants: map[core.VariantKey]float64{
			"control":   0.5,
			"treatment": 0.5,
		},
		SessionCount: 2000,
		StartDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 6, 14, 23, 59, 59, 0, time.UTC),
		Seed:         42,
		Conversion: map[core.VariantKey]float64{
			"control":   0.10,
			"treatment": 0.12,
		},
		RevenueMean: map[core.VariantKey]float64{
			"control":   25.0,
			"treatment": 27.0,
		},
		PageViewsMean: 6.0,
	}
}

var (
	deviceTypes = []string{"desktop", "mobile", "tablet"}
	browsers    = []string{"chrome", "safari", "firefox", "edge"}
	regions     = []string{"us-east", "us-west", "eu", "apac"}
)

// Generator produces synthetic session datasets
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a generator with a seeded random source
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the full synthetic dataset
func (g *Generator) Generate() *experiment.Dataset {
	sessions := make([]experiment.Session, 0, g.config.SessionCount)
	for i := 0; i < g.config.SessionCount; i++ {
		sessions = append(sessions, g.session(i))
	}
	return experiment.NewDataset(g.config.ExperimentID, sessions)
}

// Config returns a matching experiment configuration for the dataset
func (g *Generator) Config() *experiment.Config {
	cfg := &experiment.Config{
		ID:         g.config.ExperimentID,
		Name:       "Synthetic Experiment",
		Allocation: g.config.Variants,
		StartDate:  core.NewTimestamp(g.config.StartDate),
		EndDate:    core.NewTimestamp(g.config.EndDate),
		Metrics: []experiment.MetricDescriptor{
			{Key: "converted", Kind: experiment.KindBinary},
			{Key: "revenue", Kind: experiment.KindContinuous},
			{Key: "page_views", Kind: experiment.KindCount},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func (g *Generator) session(i int) experiment.Session {
	variant := g.pickVariant()
	converted := 0.0
	if g.rng.Float64() < g.config.Conversion[variant] {
		converted = 1.0
	}

	// Revenue only accrues on conversion; heavy right tail
	revenue := 0.0
	if converted == 1.0 {
		revenue = g.config.RevenueMean[variant] * (0.5 + g.rng.ExpFloat64())
	}

	pageViews := float64(1 + g.rng.Intn(int(g.config.PageViewsMean*2)))

	return experiment.Session{
		SessionID:  core.SessionID(fmt.Sprintf("sess_%06d", i+1)),
		UserID:     core.UserID(fmt.Sprintf("user_%06d", i+1)),
		Timestamp:  core.NewTimestamp(g.randomTime()),
		Variant:    variant,
		DeviceType: deviceTypes[g.rng.Intn(len(deviceTypes))],
		Browser:    browsers[g.rng.Intn(len(browsers))],
		Region:     regions[g.rng.Intn(len(regions))],
		Metrics: map[core.MetricKey]float64{
			"converted":  converted,
			"revenue":    revenue,
			"page_views": pageViews,
		},
	}
}

func (g *Generator) pickVariant() core.VariantKey {
	// Walk variants in sorted order so a fixed seed is reproducible
	keys := make([]core.VariantKey, 0, len(g.config.Variants))
	for variant := range g.config.Variants {
		keys = append(keys, variant)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	r := g.rng.Float64()
	cumulative := 0.0
	for _, variant := range keys {
		cumulative += g.config.Variants[variant]
		if r < cumulative {
			return variant
		}
	}
	return keys[len(keys)-1]
}

func (g *Generator) randomTime() time.Time {
	span := g.config.EndDate.Sub(g.config.StartDate)
	return g.config.StartDate.Add(time.Duration(g.rng.Int63n(int64(span))))
}
