package utils

import (
	"context"
	"errors"
	"sync"
)

// Compensation collects undo steps for a sequence of writes that cannot share
// a transaction. Steps run in reverse order on Rollback.
type Compensation struct {
	mu        sync.Mutex
	steps     []compensationStep
	committed bool
}

type compensationStep struct {
	name string
	undo func(ctx context.Context) error
}

func NewCompensation() *Compensation {
	return &Compensation{}
}

// Add registers the inverse of a write that has just succeeded.
func (c *Compensation) Add(name string, undo func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, compensationStep{name: name, undo: undo})
}

// Commit drops all registered steps. Rollback after Commit is a no-op.
func (c *Compensation) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = nil
	c.committed = true
}

// Rollback runs every undo step, last first, and joins their errors.
func (c *Compensation) Rollback(ctx context.Context) error {
	c.mu.Lock()
	steps := c.steps
	c.steps = nil
	committed := c.committed
	c.mu.Unlock()

	if committed {
		return nil
	}

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].undo(ctx); err != nil {
			errs = append(errs, &CompensationError{Step: steps[i].name, Err: err})
		}
	}
	return errors.Join(errs...)
}

type CompensationError struct {
	Step string
	Err  error
}

func (e *CompensationError) Error() string {
	return "compensate " + e.Step + ": " + e.Err.Error()
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}
