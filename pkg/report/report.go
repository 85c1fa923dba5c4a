package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fsaudit/fsaudit/pkg/comparison"
	"github.com/fsaudit/fsaudit/pkg/duplicates"
)

// Column layouts are fixed; downstream tooling parses them by name.
var (
	comparisonHeader = []string{"file_name", "exist_in_folder_1", "exist_in_folder_2", "size_same", "content_same"}
	duplicatesHeader = []string{"checksum", "size", "count", "paths"}
)

// WriteComparison writes comparison rows as CSV. Booleans render as
// True/False; unknown verdicts render as empty cells, never as False.
func WriteComparison(w io.Writer, outcomes []comparison.Outcome) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(comparisonHeader); err != nil {
		return errors.Wrap(err, "write header")
	}

	for _, o := range outcomes {
		row := []string{
			o.RelPath,
			formatBool(o.InLeft),
			formatBool(o.InRight),
			formatVerdict(o.SizeSame),
			formatVerdict(o.ContentSame),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write row: %q", o.RelPath)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush")
}

// WriteDuplicates writes duplicate groups as CSV, one row per group with
// member paths joined by "|".
func WriteDuplicates(w io.Writer, groups []duplicates.Group) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(duplicatesHeader); err != nil {
		return errors.Wrap(err, "write header")
	}

	for _, g := range groups {
		paths := make([]string, 0, len(g.Files))
		for _, rec := range g.Files {
			paths = append(paths, rec.AbsPath)
		}

		row := []string{
			g.Digest,
			strconv.FormatUint(g.Size, 10),
			strconv.Itoa(g.Count()),
			strings.Join(paths, "|"),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write row: %q", g.Digest)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush")
}

// SaveComparison creates path and writes the comparison CSV to it.
func SaveComparison(path string, outcomes []comparison.Outcome) error {
	return save(path, func(w io.Writer) error {
		return WriteComparison(w, outcomes)
	})
}

// SaveDuplicates creates path and writes the duplicates CSV to it.
func SaveDuplicates(path string, groups []duplicates.Group) error {
	return save(path, func(w io.Writer) error {
		return WriteDuplicates(w, groups)
	})
}

func save(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create report: %q", path)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return errors.Wrapf(f.Close(), "close report: %q", path)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatVerdict(v comparison.Verdict) string {
	switch v {
	case comparison.VerdictSame:
		return "True"
	case comparison.VerdictDiffer:
		return "False"
	default:
		return ""
	}
}
