package loader

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// wordsFromFrame extracts the word column of df. A table with a single
// column is accepted whatever that column is called.
func wordsFromFrame(df *dataframe.DataFrame) ([]int64, error) {
	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyTable
	}

	var col dataframe.Series
	for _, s := range df.Series {
		if strings.EqualFold(s.Name(), WordColumn) {
			col = s
			break
		}
	}
	if col == nil {
		if len(df.Series) != 1 {
			return nil, ErrNoWordColumn
		}
		col = df.Series[0]
	}

	n := col.NRows()
	words := make([]int64, n)
	for i := 0; i < n; i++ {
		w, err := wordValue(col.Value(i))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		words[i] = w
	}
	return words, nil
}

// wordValue converts a cell to a word. Floats are accepted only when they
// hold an exact integer.
func wordValue(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) || val < math.MinInt64 || val >= math.MaxInt64 {
			return 0, errors.Wrapf(ErrBadWord, "%v", val)
		}
		return int64(val), nil
	case json.Number:
		w, err := val.Int64()
		if err != nil {
			return 0, errors.Wrapf(ErrBadWord, "%v", val)
		}
		return w, nil
	case string:
		w, err := strconv.ParseInt(strings.TrimSpace(val), 0, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrBadWord, "%q", val)
		}
		return w, nil
	case nil:
		return 0, errors.Wrap(ErrBadWord, "missing value")
	default:
		return 0, errors.Wrapf(ErrBadWord, "%T", v)
	}
}
