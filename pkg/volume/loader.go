package volume

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadRaw reads W*H*D unsigned 16-bit samples in the given byte order.
// A stream shorter than the grid is an error.
func ReadRaw(r io.Reader, dims [3]int, order binary.ByteOrder) ([]uint16, error) {
	if err := checkDims(dims, dims[0]*dims[1]*dims[2]); err != nil {
		return nil, err
	}
	samples := make([]uint16, dims[0]*dims[1]*dims[2])
	if err := binary.Read(r, order, samples); err != nil {
		return nil, fmt.Errorf("volume: read %d samples: %w", len(samples), err)
	}
	return samples, nil
}

// Load reads a raw sample file and normalizes it.
func Load(path string, dims [3]int, order binary.ByteOrder, n Normalization) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("volume: open: %w", err)
	}
	defer f.Close()

	raw, err := ReadRaw(bufio.NewReader(f), dims, order)
	if err != nil {
		return nil, fmt.Errorf("volume: %s: %w", path, err)
	}
	return New(dims, raw, n)
}
