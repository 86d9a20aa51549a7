package receipt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-forensics/internal/analysis"
	"github.com/zombor/receipt-forensics/internal/local"
	"github.com/zombor/receipt-forensics/internal/ocr"
	"github.com/zombor/receipt-forensics/internal/receipt"
)

// scriptedEngine stands in for tesseract: a full page for block passes and
// the amount strip for single line passes.
type scriptedEngine struct{}

func (scriptedEngine) Recognize(ctx context.Context, img []byte, opts ocr.Options) (*ocr.Page, error) {
	if opts.PSM == ocr.PSMSingleLine {
		return ocr.NewPage([]ocr.Line{{Text: "$ 1.500,00", Box: image.Rect(0, 0, 900, 30)}}), nil
	}
	return ocr.NewPage([]ocr.Line{
		{Text: "Mercado Pago", Box: image.Rect(40, 20, 900, 60)},
		{Text: "De Juan Perez", Box: image.Rect(40, 70, 900, 90)},
		{Text: "Para Maria Lopez", Box: image.Rect(40, 95, 900, 99)},
		{Text: "15/03/2024", Box: image.Rect(40, 100, 900, 140)},
		{Text: "Motivo: Varios", Box: image.Rect(40, 400, 900, 440)},
	}), nil
}

var _ = Describe("Integration", func() {
	var (
		tempDir  string
		db       *receipt.BoltDB
		store    *receipt.LocalStorage
		ghServer *ghttp.Server
		err      error
	)

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "receipt-forensics-test-*")
		Expect(err).NotTo(HaveOccurred())

		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())

		pipeline := local.NewPipeline(scriptedEngine{}, local.DefaultConfig(), nil)
		service := receipt.NewService(db, store, map[analysis.Pipeline]analysis.Analyzer{
			analysis.PipelineLocal: pipeline,
		})
		server := receipt.NewServer(service, receipt.BasicAuth{})

		ghServer = ghttp.NewServer()
		ghServer.AllowUnhandledRequests = true
		ghServer.RouteToHandler(http.MethodPost, "/api/analyses", server.ServeHTTP)
		ghServer.RouteToHandler(http.MethodGet, "/api/analyses", server.ServeHTTP)
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
		os.RemoveAll(tempDir)
	})

	It("should upload a receipt, analyze it and keep it in the history", func() {
		img := image.NewGray(image.Rect(0, 0, 100, 50))
		for i := range img.Pix {
			img.Pix[i] = uint8(i % 200)
		}
		var imgBuf bytes.Buffer
		Expect(png.Encode(&imgBuf, img)).To(Succeed())

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "comprobante.png")
		Expect(err).NotTo(HaveOccurred())
		_, err = io.Copy(part, &imgBuf)
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.WriteField("pipeline", "local")).To(Succeed())
		Expect(mw.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/analyses", mw.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created receipt.Analysis
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.ID).NotTo(BeEmpty())
		Expect(created.Pipeline).To(Equal(analysis.PipelineLocal))
		Expect(created.Result.Profile).To(Equal("Mercado Pago"))
		Expect(created.Result.Sender).To(Equal("Juan Perez"))
		Expect(created.Result.Amount.Equal(decimal.NewFromInt(1500))).To(BeTrue())
		Expect(created.Result.Valid).To(BeTrue())

		data, err := store.Get(created.Filename)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).NotTo(BeEmpty())

		listResp, err := http.Get(ghServer.URL() + "/api/analyses")
		Expect(err).NotTo(HaveOccurred())
		defer listResp.Body.Close()
		var list []*receipt.Analysis
		Expect(json.NewDecoder(listResp.Body).Decode(&list)).To(Succeed())
		Expect(list).To(HaveLen(1))
		Expect(list[0].ID).To(Equal(created.ID))
		Expect(list[0].Result.Receiver).To(Equal("Maria Lopez"))
	})
})
