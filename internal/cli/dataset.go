package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// fileRepository serves a dataset from a JSON file, re-reading it on every
// load so watch mode sees edits.
type fileRepository struct {
	path string
}

func (r fileRepository) LoadDataset(ctx context.Context) (accounting.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return accounting.Dataset{}, err
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return accounting.Dataset{}, fmt.Errorf("reading dataset: %w", err)
	}
	var ds accounting.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return accounting.Dataset{}, fmt.Errorf("parsing dataset %s: %w", r.path, err)
	}
	return ds, nil
}
