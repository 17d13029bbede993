package loader

import (
	"bytes"
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// LoadJSON reads a program from a JSON lines word table, one object per
// word: {"word": 12}.
func LoadJSON(path string) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Load")
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.Wrapf(ErrEmptyTable, "Load %v", path)
	}

	ctx := context.Background()
	df, err := imports.LoadFromJSON(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "Load %v", path)
	}

	words, err := wordsFromFrame(df)
	if err != nil {
		return nil, errors.Wrapf(err, "Load %v", path)
	}
	return words, nil
}
