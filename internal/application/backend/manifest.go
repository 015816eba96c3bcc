package backend

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// CardinalityWarning records a formulation with several quality-attribute rows.
type CardinalityWarning struct {
	FormulationID int64 `yaml:"formulation_id"`
	Rows          int   `yaml:"rows"`
}

// Manifest describes one build run.
type Manifest struct {
	RunID               string               `yaml:"run_id"`
	StartedAt           time.Time            `yaml:"started_at"`
	FinishedAt          time.Time            `yaml:"finished_at"`
	Driver              string               `yaml:"driver"`
	IVRFeatures         []string             `yaml:"ivr_features"`
	CQAFeatures         []string             `yaml:"cqa_features"`
	Descriptors         []string             `yaml:"descriptors"`
	Rows                int                  `yaml:"rows"`
	DescriptorFailures  int                  `yaml:"descriptor_failures"`
	CardinalityWarnings []CardinalityWarning `yaml:"cardinality_warnings,omitempty"`
	Artifacts           []Artifact           `yaml:"artifacts"`
}

// Artifact returns the artifact with the given name.
func (m *Manifest) Artifact(name string) (Artifact, bool) {
	for _, a := range m.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// WriteFile stores the manifest as YAML.
func (m *Manifest) WriteFile(path string) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to create manifest directory")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to write manifest").WithDetail("path=" + path)
	}
	return nil
}

// LoadManifest reads a manifest written by WriteFile.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "failed to read manifest").WithDetail("path=" + path)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode manifest").WithDetail("path=" + path)
	}
	return &m, nil
}
