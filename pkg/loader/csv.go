package loader

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// LoadCSV reads a program from a CSV word table.
// - First row is header (column names)
// - Rows are program words in address order
// - Integer columns are detected automatically
func LoadCSV(path string) ([]int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "Load")
	}
	defer file.Close()

	ctx := context.Background()
	df, err := imports.LoadFromCSV(ctx, file, imports.CSVLoadOptions{
		InferDataTypes: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Load %v", path)
	}

	words, err := wordsFromFrame(df)
	if err != nil {
		return nil, errors.Wrapf(err, "Load %v", path)
	}
	return words, nil
}
