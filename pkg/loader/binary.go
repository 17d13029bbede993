package loader

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// LoadBinary reads a binary program image.
func LoadBinary(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "Load")
	}
	defer f.Close()

	words, err := ReadProgram(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Load %v", path)
	}
	return words, nil
}

// ReadProgram reads a binary program image from r until EOF.
func ReadProgram(r io.Reader) ([]int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read program")
	}
	return DecodeWords(data)
}

// DecodeWords splits a binary image into words. The image length must be
// a multiple of WordSize.
func DecodeWords(data []byte) ([]int64, error) {
	if len(data)%WordSize != 0 {
		return nil, errors.Wrapf(ErrMisaligned, "%d bytes", len(data))
	}
	words := make([]int64, len(data)/WordSize)
	for i := range words {
		words[i] = int64(binary.NativeEndian.Uint64(data[i*WordSize:]))
	}
	log.Debugf("decoded %d words", len(words))
	return words, nil
}

// WriteBinary writes words to w in the binary image format.
func WriteBinary(w io.Writer, words []int64) error {
	return errors.Wrap(binary.Write(w, binary.NativeEndian, words), "write program")
}
