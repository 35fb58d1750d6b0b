package ingest

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ablab/domain/experiment"
	"ablab/internal/errors"
)

// Manifest declares the experiments to analyze in one run. Paths in
// source_file are resolved relative to the manifest's directory.
type Manifest struct {
	Experiments []experiment.Config `yaml:"experiments"`
}

// LoadManifest reads and validates a YAML manifest. Every experiment
// gets defaults applied before validation so a minimal declaration
// (id, allocation, metrics) is enough.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IngestError("failed to read manifest "+path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.IngestError("failed to parse manifest "+path, err)
	}
	if len(m.Experiments) == 0 {
		return nil, errors.ConfigInvalid("manifest declares no experiments")
	}

	dir := filepath.Dir(path)
	for i := range m.Experiments {
		cfg := &m.Experiments[i]
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid manifest")
		}
		if cfg.SourceFile != "" && !filepath.IsAbs(cfg.SourceFile) {
			cfg.SourceFile = filepath.Join(dir, cfg.SourceFile)
		}
	}

	log.Printf("[Ingest] Manifest %s loaded (%d experiments)", filepath.Base(path), len(m.Experiments))
	return &m, nil
}

// Find returns the experiment config with the given ID
func (m *Manifest) Find(id string) (*experiment.Config, bool) {
	for i := range m.Experiments {
		if string(m.Experiments[i].ID) == id {
			return &m.Experiments[i], true
		}
	}
	return nil, false
}
