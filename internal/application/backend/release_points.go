package backend

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/turtacn/liposome-ivr/internal/domain/dataset"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// ReleasePoint is the number of digitised time points in one release profile.
type ReleasePoint struct {
	File   string
	Points int
}

// CountReleasePoints counts data rows in every *.csv file of dir, sorted by
// file name.  Blank lines and lines starting with '#' are not counted.
func CountReleasePoints(dir string) ([]ReleasePoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "failed to read release profile directory").WithDetail("dir=" + dir)
	}

	var out []ReleasePoint
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		n, err := countRecords(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, ReleasePoint{File: e.Name(), Points: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

func countRecords(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeNotFound, "failed to open release profile").WithDetail("path=" + path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	n := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeSerialization, "malformed release profile").WithDetail("path=" + path)
		}
		n++
	}
}

// ReleasePointTable renders points as [file, points].
func ReleasePointTable(points []ReleasePoint) *dataset.Table {
	t := dataset.MustNewTable("file", "points")
	for _, p := range points {
		_ = t.AppendRow(p.File, int64(p.Points))
	}
	return t
}
