package loader

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/xitongsys/parquet-go-source/local"
)

// LoadParquet reads a program from a Parquet word table.
func LoadParquet(path string) ([]int64, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "Load")
	}
	defer fr.Close()

	ctx := context.Background()
	df, err := imports.LoadFromParquet(ctx, fr)
	if err != nil {
		return nil, errors.Wrapf(err, "Load %v", path)
	}

	words, err := wordsFromFrame(df)
	if err != nil {
		return nil, errors.Wrapf(err, "Load %v", path)
	}
	return words, nil
}
