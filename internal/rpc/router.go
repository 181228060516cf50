package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/frahmantamala/paylink/internal"
)

// Endpoint is one RPC provider for a chain together with its dialed client.
type Endpoint[C any] struct {
	URL    string
	Client C
}

// Operation is a callable executed against a single endpoint's client.
type Operation[C any, T any] func(ctx context.Context, client C) (T, error)

// ExhaustedError is returned when every candidate endpoint failed.
type ExhaustedError struct {
	Chain    string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d rpc endpoints failed for chain %s: %v", e.Attempts, e.Chain, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// AppError maps the exhaustion to the blockchain-unavailable condition.
func (e *ExhaustedError) AppError() *apperrors.AppError {
	return apperrors.ErrBlockchainUnavailable.WithCause(e)
}

var ErrUnknownChain = errors.New("no rpc endpoints configured for chain")

type pool[C any] struct {
	mu        sync.Mutex
	endpoints []Endpoint[C]
	active    int
}

// Router keeps an ordered endpoint list and a sticky active index per chain.
// The active endpoint is tried first on every call; the rest follow in their
// configured order. Candidates are tried one at a time.
type Router[C any] struct {
	pools            map[string]*pool[C]
	candidateTimeout time.Duration
	logger           *slog.Logger
}

func NewRouter[C any](logger *slog.Logger, candidateTimeout time.Duration) *Router[C] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router[C]{
		pools:            make(map[string]*pool[C]),
		candidateTimeout: candidateTimeout,
		logger:           logger,
	}
}

// Register installs the endpoint list for chain. It is not safe to call
// concurrently with Execute.
func (r *Router[C]) Register(chain string, endpoints []Endpoint[C]) {
	r.pools[chain] = &pool[C]{endpoints: endpoints}
}

func (r *Router[C]) Chains() []string {
	chains := make([]string, 0, len(r.pools))
	for chain := range r.pools {
		chains = append(chains, chain)
	}
	return chains
}

func (r *Router[C]) Has(chain string) bool {
	_, ok := r.pools[chain]
	return ok
}

// ActiveURL returns the endpoint currently preferred for chain.
func (r *Router[C]) ActiveURL(chain string) string {
	p, ok := r.pools[chain]
	if !ok {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoints[p.active].URL
}

// candidates returns endpoint indexes: active first, then the others in
// configured order.
func (p *pool[C]) candidates() []int {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	order := make([]int, 0, len(p.endpoints))
	order = append(order, active)
	for i := range p.endpoints {
		if i != active {
			order = append(order, i)
		}
	}
	return order
}

func (p *pool[C]) promote(idx int) (previous int, switched bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	previous = p.active
	if previous == idx {
		return previous, false
	}
	p.active = idx
	return previous, true
}

// Execute runs op against the endpoints of chain until one succeeds.
func Execute[C any, T any](ctx context.Context, r *Router[C], chain string, op Operation[C, T]) (T, error) {
	var zero T

	p, ok := r.pools[chain]
	if !ok || len(p.endpoints) == 0 {
		return zero, fmt.Errorf("%w: %s", ErrUnknownChain, chain)
	}

	order := p.candidates()

	var lastErr error
	attempts := 0
	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		endpoint := p.endpoints[idx]
		attempts++

		result, err := callCandidate(ctx, r.candidateTimeout, endpoint.Client, op)
		if err != nil {
			r.logger.Warn("rpc endpoint failed",
				"chain", chain,
				"endpoint", endpoint.URL,
				"error", err)
			lastErr = err
			continue
		}

		if previous, switched := p.promote(idx); switched {
			r.logger.Info("rpc active endpoint switched",
				"chain", chain,
				"from", p.endpoints[previous].URL,
				"to", endpoint.URL)
		}
		return result, nil
	}

	return zero, &ExhaustedError{Chain: chain, Attempts: attempts, Last: lastErr}
}

// callCandidate bounds a single attempt by the per-candidate timeout; a
// timeout counts as an ordinary candidate failure.
func callCandidate[C any, T any](ctx context.Context, timeout time.Duration, client C, op Operation[C, T]) (T, error) {
	if timeout <= 0 {
		return op(ctx, client)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(callCtx, client)
}
