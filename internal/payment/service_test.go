package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/core/events"
	paymentPkg "github.com/frahmantamala/paylink/internal/payment"
	"github.com/frahmantamala/paylink/internal/paymentlink"
)

func TestPayment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Suite")
}

// mockPaymentRepository enforces the (tx_signature, chain) uniqueness the
// way the database does.
type mockPaymentRepository struct {
	mu       sync.Mutex
	payments map[string]*paymentPkg.Payment
	byKey    map[string]string
	inserts  int
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{
		payments: map[string]*paymentPkg.Payment{},
		byKey:    map[string]string{},
	}
}

func key(sig, chain string) string { return sig + "|" + chain }

func (m *mockPaymentRepository) InsertUnique(ctx context.Context, p *paymentPkg.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[key(p.TxSignature, p.Chain)]; exists {
		return paymentPkg.ErrDuplicate
	}
	m.inserts++
	cp := *p
	m.payments[p.ID] = &cp
	m.byKey[key(p.TxSignature, p.Chain)] = p.ID
	return nil
}

func (m *mockPaymentRepository) FindByCompoundKey(ctx context.Context, sig, chain string) (*paymentPkg.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key(sig, chain)]
	if !ok {
		return nil, paymentPkg.ErrNotFound
	}
	cp := *m.payments[id]
	return &cp, nil
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id string) (*paymentPkg.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, paymentPkg.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepository) ListByLink(ctx context.Context, linkID string) ([]*paymentPkg.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*paymentPkg.Payment
	for _, p := range m.payments {
		if p.PaymentLinkID == linkID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) ListPending(ctx context.Context, limit int) ([]*paymentPkg.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*paymentPkg.Payment
	for _, p := range m.payments {
		if p.Status == paymentPkg.StatusPending && len(out) < limit {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) MarkConfirmed(ctx context.Context, id string, confirmations int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.Status != paymentPkg.StatusPending {
		return false, nil
	}
	p.Status = paymentPkg.StatusConfirmed
	p.Confirmations = confirmations
	p.ConfirmedAt = &at
	return true, nil
}

func (m *mockPaymentRepository) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.Status != paymentPkg.StatusPending {
		return false, nil
	}
	p.Status = paymentPkg.StatusFailed
	p.FailureReason = &reason
	return true, nil
}

func (m *mockPaymentRepository) MarkChecked(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[id]; ok && p.Status == paymentPkg.StatusPending {
		p.LastCheckedAt = &at
	}
	return nil
}

func (m *mockPaymentRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

// memoryLinkRepository backs a real paymentlink.Service.
type memoryLinkRepository struct {
	mu    sync.Mutex
	links map[string]*paymentlink.Link
}

func (m *memoryLinkRepository) Create(ctx context.Context, l *paymentlink.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.links[l.Code] = &cp
	return nil
}

func (m *memoryLinkRepository) GetByCode(ctx context.Context, code string) (*paymentlink.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[code]
	if !ok {
		return nil, paymentlink.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memoryLinkRepository) GetByID(ctx context.Context, id string) (*paymentlink.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, paymentlink.ErrNotFound
}

func (m *memoryLinkRepository) IncrementPaymentCount(ctx context.Context, code string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[code]
	if !ok {
		return paymentlink.ErrNotFound
	}
	l.PaymentCount++
	l.LastPaidAt = &paidAt
	return nil
}

func (m *memoryLinkRepository) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.ID == id {
			l.IsActive = active
		}
	}
	return nil
}

// failingIncrementRegistry wraps the registry and breaks the counter update.
type failingIncrementRegistry struct {
	*paymentlink.Service
}

func (f failingIncrementRegistry) IncrementAfterPayment(ctx context.Context, code string) error {
	return errors.New("connection reset")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		repo      *mockPaymentRepository
		linkRepo  *memoryLinkRepository
		registry  *paymentlink.Service
		publisher *recordingPublisher
		service   *paymentPkg.Service
		link      *paymentlink.Link
	)

	record := func(sig string, amount string) (*paymentPkg.Payment, error) {
		return service.RecordPayment(ctx, paymentPkg.RecordInput{
			LinkCode:    link.Code,
			TxSignature: sig,
			Chain:       "solana",
			Amount:      decimal.RequireFromString(amount),
			Token:       "USDC",
			Confirmed:   true,
		})
	}

	storedLink := func() *paymentlink.Link {
		l, err := linkRepo.GetByCode(ctx, link.Code)
		Expect(err).ToNot(HaveOccurred())
		return l
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockPaymentRepository()
		linkRepo = &memoryLinkRepository{links: map[string]*paymentlink.Link{}}
		registry = paymentlink.NewService(linkRepo, slog.Default())
		publisher = &recordingPublisher{}

		var err error
		link, err = registry.Create(ctx, "merchant-1", paymentlink.CreateInput{
			Amount: decimal.NewFromInt(50),
			Token:  "USDC",
			Chain:  "solana",
		})
		Expect(err).ToNot(HaveOccurred())

		service = paymentPkg.NewService(repo, registry, publisher, slog.Default())
	})

	Describe("RecordPayment", func() {
		It("should store a confirmed payment and bump the link counter", func() {
			p, err := record("sig1", "50")

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Status).To(Equal(paymentPkg.StatusConfirmed))
			Expect(p.ConfirmedAt).ToNot(BeNil())
			Expect(p.PaymentLinkID).To(Equal(link.ID))
			Expect(p.MerchantID).To(Equal("merchant-1"))
			Expect(storedLink().PaymentCount).To(Equal(int64(1)))
			Expect(publisher.types()).To(Equal([]string{events.EventTypePaymentRecorded, events.EventTypePaymentConfirmed}))
		})

		It("should return the same record for a repeated submission without a second increment", func() {
			first, err := record("sig1", "50")
			Expect(err).ToNot(HaveOccurred())

			second, err := record("sig1", "50")

			Expect(err).ToNot(HaveOccurred())
			Expect(second.ID).To(Equal(first.ID))
			Expect(second.Status).To(Equal(first.Status))
			Expect(repo.count()).To(Equal(1))
			Expect(storedLink().PaymentCount).To(Equal(int64(1)))
		})

		It("should resolve concurrent duplicate submissions to one record", func() {
			const workers = 16
			ids := make([]string, workers)
			errs := make([]error, workers)

			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					p, err := record("sig-race", "50")
					errs[i] = err
					if p != nil {
						ids[i] = p.ID
					}
				}(i)
			}
			close(start)
			wg.Wait()

			for i := 0; i < workers; i++ {
				Expect(errs[i]).ToNot(HaveOccurred())
				Expect(ids[i]).To(Equal(ids[0]))
			}
			Expect(repo.count()).To(Equal(1))
			Expect(storedLink().PaymentCount).To(Equal(int64(1)))
		})

		It("should reject a second transaction on a one-time link", func() {
			_, err := record("sig1", "50")
			Expect(err).ToNot(HaveOccurred())

			_, err = record("sig2", "50")

			Expect(errors.Is(err, apperrors.ErrLinkAlreadyUsed)).To(BeTrue())
			Expect(repo.count()).To(Equal(1))
		})

		It("should accept over-payment", func() {
			p, err := record("sig-over", "50.000001")

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Amount.String()).To(Equal("50.000001"))
		})

		It("should reject under-payment naming the amount field", func() {
			_, err := record("sig-under", "49.99")

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			Expect(appErr.Field()).To(Equal("amount"))
			Expect(repo.count()).To(BeZero())
		})

		It("should compare token and chain case-insensitively", func() {
			p, err := service.RecordPayment(ctx, paymentPkg.RecordInput{
				LinkCode:    link.Code,
				TxSignature: "sig-case",
				Chain:       "SOLANA",
				Amount:      decimal.NewFromInt(50),
				Token:       "usdc",
				Confirmed:   true,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Chain).To(Equal("solana"))
			Expect(p.Token).To(Equal("USDC"))

			stored, err := service.GetByID(ctx, p.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Token).To(Equal(link.Token))
		})

		DescribeTable("should name the mismatching field",
			func(token, chain, field string) {
				_, err := service.RecordPayment(ctx, paymentPkg.RecordInput{
					LinkCode:    link.Code,
					TxSignature: "sig-mismatch",
					Chain:       chain,
					Amount:      decimal.NewFromInt(50),
					Token:       token,
				})

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Field()).To(Equal(field))
			},
			Entry("token", "USDT", "solana", "token"),
			Entry("chain", "USDC", "base", "chain"),
		)

		It("should propagate link lookup failures verbatim", func() {
			_, err := service.RecordPayment(ctx, paymentPkg.RecordInput{
				LinkCode:    "NOPE2345",
				TxSignature: "sig1",
				Chain:       "solana",
				Amount:      decimal.NewFromInt(50),
				Token:       "USDC",
			})

			Expect(err).To(Equal(apperrors.ErrLinkNotFound))
		})

		It("should keep the payment when the counter update fails", func() {
			service = paymentPkg.NewService(repo, failingIncrementRegistry{registry}, publisher, slog.Default())

			p, err := record("sig1", "50")

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Status).To(Equal(paymentPkg.StatusConfirmed))
			Expect(repo.count()).To(Equal(1))
			Expect(storedLink().PaymentCount).To(BeZero())
		})

		It("should leave unconfirmed submissions pending", func() {
			p, err := service.RecordPayment(ctx, paymentPkg.RecordInput{
				LinkCode:      link.Code,
				TxSignature:   "sig-pending",
				Chain:         "solana",
				Amount:        decimal.NewFromInt(50),
				Token:         "USDC",
				Confirmed:     false,
				Confirmations: 0,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Status).To(Equal(paymentPkg.StatusPending))
			Expect(p.ConfirmedAt).To(BeNil())
			Expect(publisher.types()).To(Equal([]string{events.EventTypePaymentRecorded}))
			Expect(storedLink().PaymentCount).To(Equal(int64(1)))
		})
	})

	Describe("ConfirmPending", func() {
		It("should confirm a pending payment exactly once", func() {
			p, err := service.RecordPayment(ctx, paymentPkg.RecordInput{
				LinkCode:    link.Code,
				TxSignature: "sig-pending",
				Chain:       "solana",
				Amount:      decimal.NewFromInt(50),
				Token:       "USDC",
			})
			Expect(err).ToNot(HaveOccurred())

			ok, err := service.ConfirmPending(ctx, p, 32)
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = service.FailPending(ctx, p, "late failure")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())

			stored, err := service.GetByID(ctx, p.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Status).To(Equal(paymentPkg.StatusConfirmed))
			Expect(stored.Confirmations).To(Equal(int64(32)))
		})
	})

	Describe("MarkChecked", func() {
		It("should stamp the last check time on a pending payment", func() {
			p, err := service.RecordPayment(ctx, paymentPkg.RecordInput{
				LinkCode:    link.Code,
				TxSignature: "sig-checked",
				Chain:       "solana",
				Amount:      decimal.NewFromInt(50),
				Token:       "USDC",
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.MarkChecked(ctx, p)).To(Succeed())

			Expect(p.LastCheckedAt).ToNot(BeNil())
			stored, err := service.GetByID(ctx, p.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.LastCheckedAt).ToNot(BeNil())
		})
	})
})
