package wireproto

import (
	"context"
	"sync"
	"time"
)

// PendingRequest is one outstanding actionResponse waiting to be delivered
// to the caller that submitted the action, per spec.md §9's
// "pending request/response table" with deadline and completion slot.
type PendingRequest struct {
	RequestID string
	Deadline  time.Time
	done      chan *ActionResponse
}

// Wait blocks until the response arrives or ctx is cancelled first.
func (p *PendingRequest) Wait(ctx context.Context) (*ActionResponse, error) {
	select {
	case resp := <-p.done:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Correlator matches actionResponse envelopes back to the request that
// produced them, and cancels everything outstanding when a session ends
// mid-flight.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*PendingRequest
}

// NewCorrelator creates an empty correlation table.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]*PendingRequest)}
}

// Register reserves a completion slot for requestID with a deadline.
// Registering a requestID that is already pending replaces the prior slot
// without resolving it; callers use a fresh requestID per action per
// spec.md's correlation contract, so this should not happen in practice.
func (c *Correlator) Register(requestID string, timeout time.Duration) *PendingRequest {
	p := &PendingRequest{
		RequestID: requestID,
		Deadline:  time.Now().Add(timeout),
		done:      make(chan *ActionResponse, 1),
	}

	c.mu.Lock()
	c.pending[requestID] = p
	c.mu.Unlock()
	return p
}

// Resolve delivers resp to the registered waiter, if one is still
// pending. Returns false if requestID was never registered or already
// resolved.
func (c *Correlator) Resolve(requestID string, resp *ActionResponse) bool {
	c.mu.Lock()
	p, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	p.done <- resp
	return true
}

// CancelAll resolves every outstanding request as cancelled. Call this
// when a session ends with responses still in flight.
func (c *Correlator) CancelAll() {
	c.mu.Lock()
	all := c.pending
	c.pending = make(map[string]*PendingRequest)
	c.mu.Unlock()

	for _, p := range all {
		p.done <- &ActionResponse{
			RequestID: p.RequestID,
			Success:   false,
			Err:       NewWireError(CodeUnknownError, "session ended before response"),
		}
	}
}
