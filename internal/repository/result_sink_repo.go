package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// ResultSink defines the contract for persisting the records of a finished run.
type ResultSink interface {
	// Write serializes records to filename and returns the full path written.
	Write(ctx context.Context, filename string, records []entity.ProductRecord) (string, error)
	// Read re-parses a previously written file.
	Read(ctx context.Context, filename string) ([]entity.ProductRecord, error)
	// Path returns where filename lives, or an error if it is not a result file.
	Path(filename string) (string, error)
}
