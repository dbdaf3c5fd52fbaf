package distcache

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/flowclust/matrix"
)

// ErrDimensionMismatch reports a stored matrix whose shape differs from the
// dataset. Row is -1 when the number of rows is wrong, otherwise the index of
// the row with the wrong number of values.
type ErrDimensionMismatch struct {
	Row      int
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("distcache: expected %d rows, found %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("distcache: row %d: expected %d values, found %d", e.Row, e.Expected, e.Actual)
}

// Encode writes d as text: every value followed by a space, every row
// terminated by a newline.
func Encode(w io.Writer, d *matrix.Dense) error {
	bw := bufio.NewWriterSize(w, 64<<10)
	buf := make([]byte, 0, 32)
	for i := range d.Rows() {
		for _, v := range d.Row(i) {
			buf = strconv.AppendFloat(buf[:0], float64(v), 'g', -1, 32)
			buf = append(buf, ' ')
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads an n x n matrix written by Encode: exactly n non-blank lines
// of exactly n values each. Any whitespace separates values within a line.
// The diagonal is forced to zero.
func Decode(r io.Reader, n int) (*matrix.Dense, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	d := matrix.New(n, n)

	rows := 0
	for {
		line, err := br.ReadString('\n')
		if fields := strings.Fields(line); len(fields) > 0 {
			if rows < n {
				if len(fields) != n {
					return nil, &ErrDimensionMismatch{Row: rows, Expected: n, Actual: len(fields)}
				}
				dst := d.Row(rows)
				for j, f := range fields {
					v, perr := strconv.ParseFloat(f, 32)
					if perr != nil {
						return nil, fmt.Errorf("distcache: row %d, column %d: %w", rows, j, perr)
					}
					dst[j] = float32(v)
				}
			}
			rows++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if rows != n {
		return nil, &ErrDimensionMismatch{Row: -1, Expected: n, Actual: rows}
	}

	for i := range n {
		d.Set(i, i, 0)
	}
	return d, nil
}
