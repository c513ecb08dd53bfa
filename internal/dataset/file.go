package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is an on-disk encoding for a dataset.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatArrow Format = "arrow"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "csv":
		return FormatCSV, nil
	case "arrow", "ipc":
		return FormatArrow, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: csv, arrow)", s)
	}
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrow", ".arrows", ".ipc":
		return FormatArrow
	default:
		return FormatCSV
	}
}

// WriteFile encodes ds to path. The file is written to a temp file in the
// same directory and renamed into place, so a failed write never leaves a
// partial dataset at path. Parent directories are created as needed.
func WriteFile(path string, ds *Dataset, format Format, header Header) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// No-op once the rename has succeeded.
		os.Remove(tmpPath)
	}()

	bw := bufio.NewWriter(tmp)
	switch format {
	case FormatArrow:
		err = WriteArrow(bw, ds)
	case FormatCSV:
		err = WriteCSV(bw, ds, header)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming dataset file: %w", err)
	}
	return nil
}

// ReadFile decodes the dataset at path, choosing the codec by extension.
// categories is applied to CSV input, which carries no category order.
func ReadFile(path string, categories Categorical) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if FormatFromPath(path) == FormatArrow {
		return ReadArrow(br)
	}
	return ReadCSV(br, categories)
}
