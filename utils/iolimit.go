package utils

import (
	"fmt"
	"io"
)

var ErrIOLimitReached = fmt.Errorf("read size limit reached")

// ReadAllLimit reads at most n bytes from r. If the input is longer, the
// first n bytes are returned together with ErrIOLimitReached.
func ReadAllLimit(r io.Reader, n int) ([]byte, error) {
	limit := n + 1
	buf, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return buf, err
	}
	if len(buf) >= limit {
		return buf[:limit-1], ErrIOLimitReached
	}
	return buf, nil
}
