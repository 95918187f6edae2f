// Package session implements the session controller (component C8):
// request supersession, pause/resume, and routing for a single interactive
// desktop session driving the agentic loop.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/riftloop/agentcore/pkg/models"
)

// Runner is the scheduler seam the controller drives — satisfied by
// *agent.Scheduler in the host's wiring; kept as an interface here so
// session tests can substitute a stub.
type Runner interface {
	Run(ctx context.Context, req *models.Request) error
}

// Controller owns the single active Request for a session, superseding a
// running generation when a new user message arrives and exposing
// pause/resume for the host UI.
//
// Pausing is a cooperative gate, not a cancellation: the scheduler's loop
// calls WaitWhilePaused at its per-iteration check-in point and blocks
// there until Resume reopens the gate, so an in-flight generation is never
// interrupted by a pause.
type Controller struct {
	mu      sync.Mutex
	current *models.Request
	cancel  context.CancelFunc
	paused  bool
	gate    chan struct{} // closed while not paused; replaced by Pause, closed by Resume
}

// NewController returns an empty Controller, gate open (not paused).
func NewController() *Controller {
	gate := make(chan struct{})
	close(gate)
	return &Controller{gate: gate}
}

// Submit supersedes any in-flight request and starts a new one from seed
// messages, returning the new Request immediately; the generation itself
// runs in the background via runner.
func (c *Controller) Submit(ctx context.Context, runner Runner, seed []models.Message, onDone func(error)) *models.Request {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	req := models.NewRequest(uuid.NewString(), seed)
	runCtx, cancel := context.WithCancel(ctx)
	gate := make(chan struct{})
	close(gate)
	c.current = req
	c.cancel = cancel
	c.paused = false
	c.gate = gate
	c.mu.Unlock()

	go func() {
		err := runner.Run(runCtx, req)
		if onDone != nil {
			onDone(err)
		}
	}()

	return req
}

// Pause gates the next loop step of the in-flight generation without
// cancelling it: the scheduler's running goroutine keeps executing whatever
// it was doing and only blocks the next time it calls WaitWhilePaused.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return fmt.Errorf("session: no active request")
	}
	if !c.paused {
		c.paused = true
		c.gate = make(chan struct{})
	}
	return nil
}

// Resume reopens the pause gate, waking any scheduler goroutine blocked in
// WaitWhilePaused so it continues the existing generation from wherever it
// was. It does not start a new run; the original one was never stopped.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return fmt.Errorf("session: no request to resume")
	}
	if c.paused {
		c.paused = false
		close(c.gate)
	}
	return nil
}

// WaitWhilePaused blocks until the session is resumed or ctx is cancelled.
// Called by the scheduler at each iteration's pause check-in point
// (component C7); it returns immediately when the session isn't paused.
func (c *Controller) WaitWhilePaused(ctx context.Context) error {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel supersedes the in-flight request, marking it cancelled so the
// scheduler's next cooperative check point observes it.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Cancelled.Store(true)
	}
	if c.cancel != nil {
		c.cancel()
	}
}

// Current returns the session's active Request, if any.
func (c *Controller) Current() (*models.Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current != nil
}

// IsPaused reports whether the session is currently paused.
func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}
