package backend

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// Artifact is one file produced by a build.
type Artifact struct {
	Name     string `yaml:"name" json:"name"`
	Path     string `yaml:"path" json:"path"`
	Rows     int    `yaml:"rows" json:"rows"`
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
}

// artifactMode is the permission of every written artifact, independent of
// the 0600 that os.CreateTemp starts with.
const artifactMode os.FileMode = 0o644

// WriteCSV writes records to path, creating parent directories.  The file
// is written to a temporary sibling and renamed into place.
func WriteCSV(path string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to create output directory").WithDetail("dir=" + dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to create output file").WithDetail("path=" + path)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to write csv").WithDetail("path=" + path)
	}
	if err := tmp.Chmod(artifactMode); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to set csv permissions").WithDetail("path=" + path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to close csv").WithDetail("path=" + path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to move csv into place").WithDetail("path=" + path)
	}
	return nil
}
