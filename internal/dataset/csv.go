package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/pable/squadstats/internal/model"
)

// CSVStore persists a dataset as a CSV file. The first column is the row
// index; paths ending in ".zst" are zstd-compressed.
type CSVStore struct {
	path string
}

// NewCSVStore returns a store for the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the dataset file path.
func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) compressed() bool {
	return strings.HasSuffix(s.path, ".zst")
}

// Load reads the dataset. A missing file yields an empty dataset.
func (s *CSVStore) Load(_ context.Context) (*model.Dataset, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &model.Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if s.compressed() {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	d, err := ReadCSV(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return d, nil
}

// Save rewrites the whole file. Data goes to a temporary file in the same
// directory first and is renamed over the target, so a failed save leaves
// the previous dataset intact. A context cancelled before the rename also
// leaves it untouched.
func (s *CSVStore) Save(ctx context.Context, d *model.Dataset) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".squadstats-*.tmp")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	// CreateTemp uses 0600; the rename would carry it onto the dataset.
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := s.write(tmp, d); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dataset: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

func (s *CSVStore) write(f *os.File, d *model.Dataset) error {
	if !s.compressed() {
		return WriteCSV(f, d)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	if err := WriteCSV(enc, d); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// WriteCSV writes the header and every row, with the row index in column 0.
func WriteCSV(w io.Writer, d *model.Dataset) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, model.FixedColumns...)
	header = append(header, d.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, r := range d.Rows {
		record[0] = strconv.Itoa(i)
		record[1] = r.User
		record[2] = string(r.MatchID)
		record[3] = strconv.FormatInt(r.StartTime, 10)
		record[4] = strconv.FormatInt(r.EndTime, 10)
		record[5] = r.Map
		for j, c := range d.Columns {
			v, ok := r.Stats[c]
			if !ok {
				record[6+j] = ""
				continue
			}
			record[6+j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset written by WriteCSV (or by pandas' to_csv with the
// same columns). Fixed columns are located by name; every other named column
// is a stat column. Empty stat cells are treated as absent.
func ReadCSV(r io.Reader) (*model.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &model.Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	fixed := make(map[string]int, len(model.FixedColumns))
	type statCol struct {
		name string
		pos  int
	}
	var stats []statCol
	for i, name := range header {
		switch {
		case i == 0 && (name == "" || strings.HasPrefix(name, "Unnamed")):
		case isFixed(name):
			fixed[name] = i
		default:
			stats = append(stats, statCol{name: name, pos: i})
		}
	}
	for _, c := range model.FixedColumns {
		if _, ok := fixed[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	d := &model.Dataset{}
	for _, sc := range stats {
		d.Columns = append(d.Columns, sc.name)
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d: %d fields, want %d", line, len(rec), len(header))
		}

		row := model.Row{
			User:    rec[fixed["user"]],
			MatchID: model.ParseMatchID(rec[fixed["matchId"]]),
			Map:     rec[fixed["map"]],
			Stats:   make(map[string]float64, len(stats)),
		}
		if row.StartTime, err = parseInt(rec[fixed["startTime"]]); err != nil {
			return nil, fmt.Errorf("line %d startTime: %w", line, err)
		}
		if row.EndTime, err = parseInt(rec[fixed["endTime"]]); err != nil {
			return nil, fmt.Errorf("line %d endTime: %w", line, err)
		}
		for _, sc := range stats {
			cell := strings.TrimSpace(rec[sc.pos])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, sc.name, err)
			}
			row.Stats[sc.name] = v
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}

func isFixed(name string) bool {
	for _, c := range model.FixedColumns {
		if c == name {
			return true
		}
	}
	return false
}

// parseInt accepts "1000" as well as pandas' float rendering "1000.0".
func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int64(f), nil
}
