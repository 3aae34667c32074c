package csvsink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

var (
	ErrInvalidFilename = errors.New("not a result file name")
	ErrMalformedFile   = errors.New("malformed result file")
)

var header = []string{"title", "buy_button"}

var filenamePattern = regexp.MustCompile(`^results_[A-Za-z0-9._-]+\.csv$`)

type sinkImpl struct {
	dir string
}

// NewSink creates a ResultSink writing CSV files into dir.
func NewSink(dir string) (repository.ResultSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &sinkImpl{dir: dir}, nil
}

func (s *sinkImpl) Path(filename string) (string, error) {
	if !filenamePattern.MatchString(filename) || filename != filepath.Base(filename) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return filepath.Join(s.dir, filename), nil
}

// Write replaces filename with a header row followed by one row per record.
// The file is written next to its final name and renamed into place.
func (s *sinkImpl) Write(ctx context.Context, filename string, records []entity.ProductRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.Path(filename)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return "", err
	}
	for _, r := range records {
		if err := w.Write([]string{r.Title, strconv.FormatBool(r.HasBuyButton)}); err != nil {
			tmp.Close()
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move results into place: %w", err)
	}
	return path, nil
}

func (s *sinkImpl) Read(ctx context.Context, filename string) ([]entity.ProductRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	first, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMalformedFile)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	if first[0] != header[0] || first[1] != header[1] {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformedFile, first)
	}

	records := []entity.ProductRecord{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
		}
		buy, err := strconv.ParseBool(row[1])
		if err != nil {
			return nil, fmt.Errorf("%w: buy_button %q", ErrMalformedFile, row[1])
		}
		records = append(records, entity.ProductRecord{Title: row[0], HasBuyButton: buy})
	}
	return records, nil
}
