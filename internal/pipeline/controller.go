package pipeline

import (
	"context"
	"sync"
)

// Controller holds the single active session and supersedes it when a new
// address is submitted.
type Controller struct {
	opts Options

	mu      sync.Mutex
	current *Session
	closed  bool
}

// NewController creates a controller whose sessions share opts.
func NewController(opts Options) *Controller {
	return &Controller{opts: opts}
}

// Submit closes the current session, if any, and starts a new one for req.
// ctx must outlive the session; it bounds the lookups and the analysis jobs.
func (c *Controller) Submit(ctx context.Context, req Request) *Session {
	s := NewSession(req, c.opts)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		s.Close()
		return s
	}
	prev := c.current
	c.current = s
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	go s.Run(ctx)
	return s
}

// Current returns the active session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close tears down the active session. Later submissions are closed
// immediately.
func (c *Controller) Close() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.closed = true
	c.mu.Unlock()

	if s != nil {
		s.Close()
	}
}
