package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/flowclust"
	"github.com/hupe1980/flowclust/matrix"
)

// readMatrix parses one trajectory per line as whitespace-separated floats.
// Blank lines are skipped and every row must have the same length.
func readMatrix(r io.Reader) (*matrix.Dense, error) {
	var rows [][]float32
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float32, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row[j] = float32(v)
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("line %d: %d values, want %d", line, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, flowclust.ErrEmptyInput
	}
	return matrix.FromRows(rows)
}

func readMatrixFile(path string) (*matrix.Dense, error) {
	if path == "-" {
		return readMatrix(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readMatrix(f)
}

// writeAssignments writes "row cluster size" per input row.
func writeAssignments(w io.Writer, res *flowclust.Result) error {
	bw := bufio.NewWriter(w)
	for i, g := range res.Assignments {
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", i, g, res.Sizes[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeResult prints the human-readable run report.
func writeResult(w io.Writer, res *flowclust.Result) {
	if res.Label != "" {
		fmt.Fprintln(w, res.Label)
	}
	fmt.Fprintf(w, "groups: %d\n", res.Groups)
	if res.EntropyDefined {
		fmt.Fprintf(w, "entropy: %.6f\n", res.Entropy)
	} else {
		fmt.Fprintln(w, "entropy: undefined")
	}
	for _, s := range res.Validity {
		fmt.Fprintf(w, "%s: %.6f\n", s.Name, s.Value)
	}
	for _, r := range res.Closest {
		fmt.Fprintf(w, "cluster %d closest row %d\n", r.Cluster, r.Row)
	}
	for _, r := range res.Furthest {
		fmt.Fprintf(w, "cluster %d furthest row %d\n", r.Cluster, r.Row)
	}
	for _, t := range res.Timings {
		fmt.Fprintf(w, "%s: %s\n", t.Event, t.Duration)
	}
}
