// Package stats collects per-label latency measurements for a benchmark run
// and renders a summary report. Latencies go into HDR histograms tracking
// microsecond values up to one second at three significant digits.
package stats

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histMinValue = 1
	histMaxValue = 1_000_000 // one second, in microseconds
	histSigFigs  = 3
)

// Points aggregates latency measurements keyed by label (typically the
// benchmark task kind). Safe for concurrent use.
type Points struct {
	mu         sync.Mutex
	runID      string
	start      time.Time
	groups     map[string]*hdrhistogram.Histogram
	indexBytes uint64
}

// NewPoints creates an empty collector for the given run.
func NewPoints(runID string) *Points {
	return &Points{
		runID:  runID,
		start:  time.Now(),
		groups: map[string]*hdrhistogram.Histogram{},
	}
}

// Record adds one latency observation under label. Values beyond the
// histogram range are clamped to its bounds.
func (p *Points) Record(label string, d time.Duration) {
	us := d.Microseconds()
	if us < histMinValue {
		us = histMinValue
	}
	if us > histMaxValue {
		us = histMaxValue
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.groups[label]
	if !ok {
		h = hdrhistogram.New(histMinValue, histMaxValue, histSigFigs)
		p.groups[label] = h
	}
	_ = h.RecordValue(us)
}

// SetIndexSize records the on-disk index size for the report.
func (p *Points) SetIndexSize(bytes uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexBytes = bytes
}

// TotalCount returns the number of observations across all labels.
func (p *Points) TotalCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total int64
	for _, h := range p.groups {
		total += h.TotalCount()
	}
	return total
}

// Labels returns the recorded labels, sorted.
func (p *Points) Labels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	labels := make([]string, 0, len(p.groups))
	for label := range p.groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Report writes the per-label latency summary.
func (p *Points) Report(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(w, "run %s (elapsed %s)\n",
		p.runID, time.Since(p.start).Round(time.Millisecond)); err != nil {
		return err
	}
	if p.indexBytes > 0 {
		if _, err := fmt.Fprintf(w, "index size: %s\n", bytefmt.ByteSize(p.indexBytes)); err != nil {
			return err
		}
	}

	labels := make([]string, 0, len(p.groups))
	for label := range p.groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		h := p.groups[label]
		_, err := fmt.Fprintf(w, "%-24s count=%-8d p50=%s p99=%s max=%s\n",
			label,
			h.TotalCount(),
			formatUS(h.ValueAtQuantile(50)),
			formatUS(h.ValueAtQuantile(99)),
			formatUS(h.Max()))
		if err != nil {
			return err
		}
	}
	return nil
}

func formatUS(us int64) string {
	return (time.Duration(us) * time.Microsecond).String()
}
