package neurips

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Header is the column layout of the output table.
var Header = []string{
	"Title",
	"Authors",
	"Min Review Score",
	"Average Review Score",
	"Median Review Score",
	"Max Review Score",
	"Presentation Type",
	"Number",
	"ID",
}

// Record renders r as a table row. Absent statistics are empty cells.
func (r Row) Record() []string {
	rec := make([]string, 0, len(Header))
	rec = append(rec, r.Title, strings.Join(r.Authors, ", "))
	if s := r.Scores; s != nil {
		rec = append(rec, formatScore(s.Min), formatScore(s.Mean), formatScore(s.Median), formatScore(s.Max))
	} else {
		rec = append(rec, "", "", "", "")
	}
	return append(rec, string(r.Tier), strconv.Itoa(r.Number), r.ID)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EncodeCSV writes the header and rows to w.
func EncodeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes rows to path, replacing any existing file. The table is
// written to a temporary file in the same directory and renamed into
// place, so path never holds a partial table.
func WriteCSV(path string, rows []Row) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = EncodeCSV(tmp, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
