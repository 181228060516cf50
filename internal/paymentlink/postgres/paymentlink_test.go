package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	linkDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/paymentlink"
	"github.com/frahmantamala/paylink/internal/paymentlink"
	"github.com/frahmantamala/paylink/pkg/database"
)

func TestPaymentLinkRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Payment Link Repository Suite")
}

var _ = ginkgo.Describe("PaymentLinkRepository", func() {
	var (
		db   *gorm.DB
		repo *PaymentLinkRepository
		ctx  context.Context
	)

	newLink := func(code string) *paymentlink.Link {
		return &paymentlink.Link{
			ID:         uuid.NewString(),
			Code:       code,
			MerchantID: "merchant-1",
			Amount:     decimal.RequireFromString("49.99"),
			Token:      "USDC",
			Chain:      "solana",
			IsActive:   true,
		}
	}

	ginkgo.BeforeEach(func() {
		var err error
		db, err = database.OpenSQLite(":memory:")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(db.AutoMigrate(&linkDatamodel.PaymentLink{})).To(gomega.Succeed())

		repo = NewPaymentLinkRepository(db)
		ctx = context.Background()
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("should persist the link and keep the decimal amount", func() {
			// Given
			link := newLink("CODE2345")

			// When
			err := repo.Create(ctx, link)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			stored, err := repo.GetByCode(ctx, "CODE2345")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Amount.Equal(decimal.RequireFromString("49.99"))).To(gomega.BeTrue())
			gomega.Expect(stored.IsActive).To(gomega.BeTrue())
		})

		ginkgo.It("should report duplicate codes", func() {
			// Given
			gomega.Expect(repo.Create(ctx, newLink("CODE2345"))).To(gomega.Succeed())

			// When
			err := repo.Create(ctx, newLink("CODE2345"))

			// Then
			gomega.Expect(errors.Is(err, paymentlink.ErrDuplicateCode)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("IncrementPaymentCount", func() {
		ginkgo.It("should not lose updates under concurrent increments", func() {
			// Given
			link := newLink("REUSE234")
			link.IsReusable = true
			gomega.Expect(repo.Create(ctx, link)).To(gomega.Succeed())

			// When
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer ginkgo.GinkgoRecover()
					gomega.Expect(repo.IncrementPaymentCount(ctx, "REUSE234", time.Now().UTC())).To(gomega.Succeed())
				}()
			}
			wg.Wait()

			// Then
			stored, err := repo.GetByCode(ctx, "REUSE234")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.PaymentCount).To(gomega.Equal(int64(10)))
			gomega.Expect(stored.LastPaidAt).ToNot(gomega.BeNil())
		})

		ginkgo.It("should report unknown codes", func() {
			err := repo.IncrementPaymentCount(ctx, "NOPE2345", time.Now())
			gomega.Expect(errors.Is(err, paymentlink.ErrNotFound)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("SetActive", func() {
		ginkgo.It("should flip the active flag", func() {
			// Given
			link := newLink("DEAC2345")
			gomega.Expect(repo.Create(ctx, link)).To(gomega.Succeed())

			// When
			gomega.Expect(repo.SetActive(ctx, link.ID, false)).To(gomega.Succeed())

			// Then
			stored, err := repo.GetByID(ctx, link.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.IsActive).To(gomega.BeFalse())
		})
	})
})
