package errors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// TeardownCollector accumulates failures from an ordered teardown sequence.
// Every step runs regardless of earlier failures; the collected result is
// surfaced once, after the sequence completes.
type TeardownCollector struct {
	merr *multierror.Error
}

// Step runs fn and records its failure, if any, under the given step name.
// A nil fn is treated as an already-empty resource and skipped.
func (c *TeardownCollector) Step(name string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		c.Add(name, err)
	}
}

// Add records a failure for a named teardown step.
func (c *TeardownCollector) Add(name string, err error) {
	if err == nil {
		return
	}
	c.merr = multierror.Append(c.merr, fmt.Errorf("%s: %w", name, err))
}

// Failed reports whether any step failed so far.
func (c *TeardownCollector) Failed() bool {
	return c.merr.ErrorOrNil() != nil
}

// Err returns nil when every step succeeded, otherwise a single BenchError
// wrapping all step failures.
func (c *TeardownCollector) Err() error {
	underlying := c.merr.ErrorOrNil()
	if underlying == nil {
		return nil
	}
	return New(ErrCodeTeardown,
		fmt.Sprintf("teardown completed with %d failed step(s)", len(c.merr.Errors)),
		underlying)
}
