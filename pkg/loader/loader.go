// Package loader reads regvm programs from disk.
//
// The native format is a flat file of signed 64-bit words in host byte
// order. Programs can also be stored as word tables (CSV, JSON lines or
// Parquet) with one word per row in a "word" column.
package loader

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"github.com/akhildatla/regvm/pkg/vm"
)

// WordSize is the size in bytes of one program word.
const WordSize = 8

// WordColumn is the column that holds program words in a word table.
const WordColumn = "word"

// Error definitions
var (
	// ErrMisaligned is returned for binary images whose length is not a
	// whole number of words. It is a vm.ErrMalformedProgram.
	ErrMisaligned = errors.Wrap(vm.ErrMalformedProgram, "invalid binary size")

	ErrEmptyTable   = errors.New("empty word table")
	ErrNoWordColumn = errors.New("word table has no word column")
	ErrBadWord      = errors.New("word is not an integer")
)

var log = commonlog.GetLogger("regvm.loader")

// Load reads the program at path, choosing the format from its extension:
// .csv, .json and .parquet are word tables, anything else is a binary image.
func Load(path string) ([]int64, error) {
	var (
		words []int64
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		words, err = LoadCSV(path)
	case ".json", ".jsonl":
		words, err = LoadJSON(path)
	case ".parquet":
		words, err = LoadParquet(path)
	default:
		words, err = LoadBinary(path)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("loaded %d words from %s", len(words), path)
	return words, nil
}
