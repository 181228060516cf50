package confirmation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/paylink/internal/chain"
	paymentDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/payment"
	"github.com/frahmantamala/paylink/internal/payment"
	paymentPostgres "github.com/frahmantamala/paylink/internal/payment/postgres"
	"github.com/frahmantamala/paylink/pkg/database"
)

var _ = ginkgo.Describe("Confirmer over a stored backlog", func() {
	var (
		ctx       context.Context
		repo      *paymentPostgres.PaymentRepository
		service   *payment.Service
		confirmer *Confirmer
	)

	insert := func(sig string, age time.Duration) *payment.Payment {
		p := &payment.Payment{
			ID:            uuid.NewString(),
			PaymentLinkID: "link-1",
			MerchantID:    "merchant-1",
			TxSignature:   sig,
			Chain:         "base",
			Amount:        decimal.NewFromInt(50),
			Token:         "USDC",
			Status:        payment.StatusPending,
			CreatedAt:     time.Now().UTC().Add(-age),
		}
		gomega.Expect(repo.InsertUnique(ctx, p)).To(gomega.Succeed())
		return p
	}

	statusOf := func(id string) string {
		p, err := repo.GetByID(ctx, id)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return p.Status
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		db, err := database.OpenSQLite(":memory:")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(db.AutoMigrate(&paymentDatamodel.Payment{})).To(gomega.Succeed())

		repo = paymentPostgres.NewPaymentRepository(db)
		service = payment.NewService(repo, nil, nil, slog.Default())
	})

	ginkgo.AfterEach(func() {
		confirmer.Shutdown()
	})

	ginkgo.It("should reach a confirmable payment queued behind a full batch of unknown ones", func() {
		// Given two unknown transactions older than the real one and a batch of two
		ghostA := insert("0xghost-a", 3*time.Minute)
		ghostB := insert("0xghost-b", 2*time.Minute)
		good := insert("0xgood", time.Minute)
		lookup := &mockLookup{statuses: map[string]*chain.TxStatus{
			"0xghost-a": {Found: false},
			"0xghost-b": {Found: false},
			"0xgood":    {Found: true, Success: true, Finalized: true, Confirmations: 40, RequiredConfirmations: 12},
		}}
		confirmer = NewConfirmer(service, lookup, Config{MaxWorkers: 2, JobQueueSize: 10, BatchSize: 2}, slog.Default())
		confirmer.Start()

		// When the poller keeps running
		gomega.Eventually(func() string {
			_, err := confirmer.PollOnce(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			return statusOf(good.ID)
		}, 2*time.Second, 20*time.Millisecond).Should(gomega.Equal(payment.StatusConfirmed))

		// Then the unknown ones wait for the chain without being failed early
		gomega.Expect(statusOf(ghostA.ID)).To(gomega.Equal(payment.StatusPending))
		gomega.Expect(statusOf(ghostB.ID)).To(gomega.Equal(payment.StatusPending))
	})
})
