package llm

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBudgetExhausted is returned once a Budget's call cap has been reached.
var ErrBudgetExhausted = errors.New("llm: call budget exhausted")

// Budget caps the number of AI calls issued through it. The driver creates
// one Budget per run and shares it across every AI-calling stage. Safe for
// concurrent use by a worker pool dispatching batches in parallel.
type Budget struct {
	max   int64
	spent int64
}

// NewBudget creates a budget allowing up to max calls. max <= 0 means
// unlimited.
func NewBudget(max int) *Budget {
	return &Budget{max: int64(max)}
}

// Reserve claims one call slot, returning ErrBudgetExhausted if the cap has
// already been reached.
func (b *Budget) Reserve() error {
	if b.max <= 0 {
		atomic.AddInt64(&b.spent, 1)
		return nil
	}
	for {
		cur := atomic.LoadInt64(&b.spent)
		if cur >= b.max {
			return ErrBudgetExhausted
		}
		if atomic.CompareAndSwapInt64(&b.spent, cur, cur+1) {
			return nil
		}
	}
}

// Spent returns the number of calls reserved so far.
func (b *Budget) Spent() int {
	return int(atomic.LoadInt64(&b.spent))
}

// BoundedClient wraps a Client so every Call first consumes one unit of
// budget, failing fast once exhausted instead of making the call.
type BoundedClient struct {
	Client Client
	Budget *Budget
}

// Call implements Client.
func (b *BoundedClient) Call(ctx context.Context, req Request) (Response, error) {
	if err := b.Budget.Reserve(); err != nil {
		return Response{}, err
	}
	return b.Client.Call(ctx, req)
}
