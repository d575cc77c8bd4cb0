// Package store persists harmonized point batches as a directory of parquet
// part files, keeping only the common columns.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/cryodata/iceflow/model"
)

// DefaultName is the conventional name of the cache directory inside an
// output directory.
const DefaultName = "iceflow.parquet"

// markerFile records the cache layout version so later releases can detect
// caches written by older ones.
const (
	markerFile    = "_iceflow"
	layoutVersion = "1"
)

var partPattern = regexp.MustCompile(`^part-(\d{5})\.parquet$`)

// Row is the parquet schema of the cache: the common columns only, extra
// dataset-specific fields are dropped.
type Row struct {
	Dataset     string    `parquet:"dataset"`
	UTCDateTime time.Time `parquet:"utc_datetime,timestamp"`
	ITRF        string    `parquet:"itrf"`
	Latitude    float64   `parquet:"latitude"`
	Longitude   float64   `parquet:"longitude"`
	Elevation   float64   `parquet:"elevation"`
}

// Writer appends point batches to a parquet cache directory, one part file
// per batch.
type Writer struct {
	dir  string
	next int
}

// Create initializes a new cache directory. An existing directory is an
// error unless overwrite is set, in which case it is removed first.
func Create(dir string, overwrite bool) (*Writer, error) {
	if _, err := os.Stat(dir); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("parquet cache %q already exists", dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("remove existing parquet cache: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, markerFile), []byte(layoutVersion+"\n"), 0o644); err != nil {
		return nil, err
	}
	return &Writer{dir: dir}, nil
}

// Open opens an existing cache directory for appending. The next part number
// continues after the highest part already present.
func Open(dir string) (*Writer, error) {
	raw, err := os.ReadFile(filepath.Join(dir, markerFile))
	if err != nil {
		return nil, fmt.Errorf("open parquet cache %q: %w", dir, err)
	}
	if version := strings.TrimSpace(string(raw)); version != layoutVersion {
		return nil, fmt.Errorf("parquet cache %q has layout version %s, want %s", dir, version, layoutVersion)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	next := 0
	for _, entry := range entries {
		m := partPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n+1 > next {
			next = n + 1
		}
	}
	return &Writer{dir: dir, next: next}, nil
}

// Dir returns the cache directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// Append writes one batch as the next part file and returns the number of
// rows written. Empty batches produce no file.
func (w *Writer) Append(batch *model.PointBatch) (int, error) {
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	n := batch.Len()
	if n == 0 {
		return 0, nil
	}

	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			Dataset:     batch.Dataset,
			UTCDateTime: batch.UTCDateTime[i].UTC(),
			ITRF:        batch.ITRF[i],
			Latitude:    batch.Latitude[i],
			Longitude:   batch.Longitude[i],
			Elevation:   batch.Elevation[i],
		}
	}

	path := filepath.Join(w.dir, fmt.Sprintf("part-%05d.parquet", w.next))
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	pw := parquet.NewGenericWriter[Row](f)
	if _, err := pw.Write(rows); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("write parquet part %q: %w", path, err)
	}
	if err := pw.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("close parquet part %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}

	w.next++
	return n, nil
}

// ReadAll loads every row of every part file in the cache, in part order.
// Intended for modest caches and tests; large caches should be read with a
// parquet-aware engine instead.
func ReadAll(dir string) ([]Row, error) {
	if _, err := Open(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, entry := range entries {
		if !partPattern.MatchString(entry.Name()) {
			continue
		}
		part, err := parquet.ReadFile[Row](filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read parquet part %q: %w", entry.Name(), err)
		}
		rows = append(rows, part...)
	}
	return rows, nil
}
