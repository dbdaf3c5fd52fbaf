package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// Score is one named validity value.
type Score struct {
	Name  string
	Value float64
}

// Summary describes a finished clustering run.
type Summary struct {
	RunID string
	// Label disambiguates runs of one dataset, e.g. "For norm 2".
	Label  string
	Mode   string
	Metric string

	Rows   int
	K      int
	Groups int

	Entropy        float64
	EntropyDefined bool
	Scores         []Score

	Created time.Time
}

// Score returns the value of the named score.
func (s Summary) Score(name string) (float64, bool) {
	for _, sc := range s.Scores {
		if sc.Name == name {
			return sc.Value, true
		}
	}
	return 0, false
}

// Sink consumes run summaries. Implementations must be safe for concurrent use.
type Sink interface {
	WriteSummary(ctx context.Context, s Summary) error
}

// NormLabel returns the label of a direct run with the given metric id.
func NormLabel(metric int) string {
	return "For norm " + strconv.Itoa(metric)
}

// TextSink writes readme blocks:
//
//	For norm 2
//	groups: 3
//	entropy: 0.946395
//	silhouette: 0.71
//
// The label line is omitted for an empty label and entropy is written as
// "undefined" when it could not be computed.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSink returns a sink appending to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// WriteSummary implements Sink.
func (t *TextSink) WriteSummary(_ context.Context, s Summary) error {
	var buf []byte
	if s.Label != "" {
		buf = append(buf, s.Label...)
		buf = append(buf, '\n')
	}
	buf = fmt.Appendf(buf, "groups: %d\n", s.Groups)
	if s.EntropyDefined {
		buf = append(buf, "entropy: "...)
		buf = strconv.AppendFloat(buf, s.Entropy, 'g', 6, 64)
		buf = append(buf, '\n')
	} else {
		buf = append(buf, "entropy: undefined\n"...)
	}
	for _, sc := range s.Scores {
		buf = append(buf, sc.Name...)
		buf = append(buf, ": "...)
		buf = strconv.AppendFloat(buf, sc.Value, 'g', 6, 64)
		buf = append(buf, '\n')
	}
	buf = append(buf, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.w.Write(buf)
	return err
}

// Multi fans a summary out to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) WriteSummary(ctx context.Context, s Summary) error {
	var errs []error
	for _, sink := range m {
		if err := sink.WriteSummary(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every summary.
var Discard Sink = discard{}

type discard struct{}

func (discard) WriteSummary(context.Context, Summary) error { return nil }
