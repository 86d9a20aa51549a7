package receipt

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		db     *BoltDB
	)

	newAnalysis := func(id string, at time.Time) *Analysis {
		return &Analysis{
			ID:          id,
			Filename:    "2024/03/" + id + "_receipt.png",
			ContentType: "image/png",
			Pipeline:    analysis.PipelineLocal,
			Result: &analysis.Result{
				Amount:   decimal.RequireFromString("1500.50"),
				Currency: "ARS",
				Date:     "15/03/2024",
				Valid:    true,
				Profile:  "Mercado Pago",
				Pipeline: analysis.PipelineLocal,
			},
			CreatedAt: at,
		}
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		db, err = NewBoltDB(filepath.Join(tmpDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveAnalysis and GetAnalysis", func() {
		var saved *Analysis

		BeforeEach(func() {
			saved = newAnalysis("a1", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
			Expect(db.SaveAnalysis(saved)).To(Succeed())
		})

		It("should round trip the result", func() {
			got, err := db.GetAnalysis("a1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Filename).To(Equal(saved.Filename))
			Expect(got.Result.Profile).To(Equal("Mercado Pago"))
			Expect(got.Result.Amount.Equal(decimal.RequireFromString("1500.5"))).To(BeTrue())
			Expect(got.CreatedAt.Equal(saved.CreatedAt)).To(BeTrue())
		})

		When("the ID is unknown", func() {
			It("should return ErrNotFound", func() {
				_, err := db.GetAnalysis("missing")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("ListAnalyses", func() {
		When("analyses exist", func() {
			BeforeEach(func() {
				Expect(db.SaveAnalysis(newAnalysis("old", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))).To(Succeed())
				Expect(db.SaveAnalysis(newAnalysis("new", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))).To(Succeed())
			})

			It("should return them newest first", func() {
				list, err := db.ListAnalyses()
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(HaveLen(2))
				Expect(list[0].ID).To(Equal("new"))
				Expect(list[1].ID).To(Equal("old"))
			})
		})

		When("the database is empty", func() {
			It("should return an empty slice", func() {
				list, err := db.ListAnalyses()
				Expect(err).NotTo(HaveOccurred())
				Expect(list).NotTo(BeNil())
				Expect(list).To(BeEmpty())
			})
		})
	})

	Describe("DeleteAnalysis", func() {
		BeforeEach(func() {
			Expect(db.SaveAnalysis(newAnalysis("a1", time.Now()))).To(Succeed())
		})

		It("should remove the analysis", func() {
			Expect(db.DeleteAnalysis("a1")).To(Succeed())
			_, err := db.GetAnalysis("a1")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("should report unknown IDs", func() {
			Expect(errors.Is(db.DeleteAnalysis("missing"), ErrNotFound)).To(BeTrue())
		})
	})

	When("the database is reopened", func() {
		It("should keep the data", func() {
			Expect(db.SaveAnalysis(newAnalysis("a1", time.Now()))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(filepath.Join(tmpDir, "test.db"))
			Expect(err).NotTo(HaveOccurred())
			_, err = db.GetAnalysis("a1")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
