package confirmation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/paylink/internal/chain"
	"github.com/frahmantamala/paylink/internal/payment"
)

var ErrQueueFull = errors.New("confirmation queue full")

type PaymentStore interface {
	ListPending(ctx context.Context, limit int) ([]*payment.Payment, error)
	ConfirmPending(ctx context.Context, p *payment.Payment, confirmations int64) (bool, error)
	FailPending(ctx context.Context, p *payment.Payment, reason string) (bool, error)
	MarkChecked(ctx context.Context, p *payment.Payment) error
}

type StatusLookup interface {
	TransactionStatus(ctx context.Context, chain, signature string) (*chain.TxStatus, error)
}

type Config struct {
	MaxWorkers   int
	JobQueueSize int
	PollInterval time.Duration
	BatchSize    int

	// NotFoundTimeout is how long a payment may stay unknown to the chain
	// before it is failed.
	NotFoundTimeout time.Duration
}

const notFoundReason = "transaction not found on chain"

// Confirmer promotes pending payments to confirmed or failed by looking
// their transactions up on chain.
type Confirmer struct {
	payments PaymentStore
	lookup   StatusLookup
	logger   *slog.Logger

	pollInterval    time.Duration
	batchSize       int
	notFoundTimeout time.Duration
	now             func() time.Time

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	inFlight   sync.Map
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewConfirmer(payments PaymentStore, lookup StatusLookup, config Config, logger *slog.Logger) *Confirmer {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}
	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	notFoundTimeout := config.NotFoundTimeout
	if notFoundTimeout <= 0 {
		notFoundTimeout = 24 * time.Hour
	}

	return &Confirmer{
		payments:        payments,
		lookup:          lookup,
		logger:          logger,
		pollInterval:    pollInterval,
		batchSize:       batchSize,
		notFoundTimeout: notFoundTimeout,
		now:             time.Now,
		maxWorkers:      maxWorkers,
		jobQueue:        make(chan Job, jobQueueSize),
		workerPool:      make(chan chan Job, maxWorkers),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start launches the workers and the dispatcher. It is safe to call more
// than once.
func (c *Confirmer) Start() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.process)
		}

		c.wg.Add(1)
		go c.dispatch()

		c.logger.Info("confirmation worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Confirmer) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:
				case <-c.ctx.Done():
					c.logger.Info("dispatcher shutting down")
					return
				}
			case <-c.ctx.Done():
				c.logger.Info("dispatcher shutting down")
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Run polls for pending payments until ctx is cancelled, then drains the
// pool.
func (c *Confirmer) Run(ctx context.Context) error {
	c.Start()
	defer c.Shutdown()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := c.PollOnce(ctx); err != nil {
			c.logger.Error("pending payment poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce queues every pending payment not already being processed and
// reports how many were queued.
func (c *Confirmer) PollOnce(ctx context.Context) (int, error) {
	pending, err := c.payments.ListPending(ctx, c.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending payments: %w", err)
	}

	queued := 0
	for _, p := range pending {
		if err := c.Enqueue(p); err != nil {
			if errors.Is(err, ErrQueueFull) {
				c.logger.Warn("confirmation queue full, deferring to next poll",
					"queue_capacity", cap(c.jobQueue),
					"remaining", len(pending)-queued)
				break
			}
			continue
		}
		queued++
	}
	return queued, nil
}

var errAlreadyQueued = errors.New("payment already queued")

func (c *Confirmer) Enqueue(p *payment.Payment) error {
	if _, loaded := c.inFlight.LoadOrStore(p.ID, struct{}{}); loaded {
		return errAlreadyQueued
	}

	select {
	case c.jobQueue <- Job{Payment: p}:
		return nil
	default:
		c.inFlight.Delete(p.ID)
		return ErrQueueFull
	}
}

func (c *Confirmer) Shutdown() {
	c.logger.Info("shutting down confirmation worker pool")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("confirmation worker pool shutdown complete")
}

func (c *Confirmer) process(ctx context.Context, job Job) {
	p := job.Payment
	defer c.inFlight.Delete(p.ID)

	log := c.logger.With("payment_id", p.ID, "chain", p.Chain, "tx_signature", p.TxSignature)

	// stamp before the lookup so the next poll moves past this payment
	// whatever the outcome
	if err := c.payments.MarkChecked(ctx, p); err != nil {
		log.Warn("failed to stamp payment check", "error", err)
	}

	status, err := c.lookup.TransactionStatus(ctx, p.Chain, p.TxSignature)
	if err != nil {
		log.Warn("chain lookup failed, payment stays pending", "error", err)
		return
	}

	switch {
	case status.IsConfirmed():
		ok, err := c.payments.ConfirmPending(ctx, p, int64(status.Confirmations))
		if err != nil {
			log.Error("failed to confirm payment", "error", err)
			return
		}
		if !ok {
			log.Debug("payment already left pending state")
		}
	case status.IsFailed():
		reason := status.FailureReason
		if reason == "" {
			reason = "transaction failed on chain"
		}
		if _, err := c.payments.FailPending(ctx, p, reason); err != nil {
			log.Error("failed to mark payment failed", "error", err)
		}
	case !status.Found && c.now().Sub(p.CreatedAt) >= c.notFoundTimeout:
		log.Warn("payment never appeared on chain, failing it",
			"age", c.now().Sub(p.CreatedAt).String(),
			"timeout", c.notFoundTimeout.String())
		if _, err := c.payments.FailPending(ctx, p, notFoundReason); err != nil {
			log.Error("failed to mark payment failed", "error", err)
		}
	default:
		log.Debug("payment awaiting confirmations",
			"found", status.Found,
			"confirmations", status.Confirmations,
			"required", status.RequiredConfirmations)
	}
}
