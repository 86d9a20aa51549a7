package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		analyzer    *mockAnalyzer
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		analyzer = newMockAnalyzer(analysis.PipelineLocal)
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service = NewServiceWithDeps(db, storage,
			map[analysis.Pipeline]analysis.Analyzer{analysis.PipelineLocal: analyzer},
			&mockIDGenerator{id: "id-1"}, &mockTimeSource{now: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	upload := func(fields map[string]string, filename string, data []byte) *http.Response {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for k, v := range fields {
			Expect(mw.WriteField(k, v)).To(Succeed())
		}
		if filename != "" {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
			h.Set("Content-Type", "image/png")
			part, err := mw.CreatePart(h)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(data)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(mw.Close()).To(Succeed())

		req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+"/api/analyses", &body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeError := func(resp *http.Response) string {
		defer resp.Body.Close()
		var body map[string]string
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		return body["error"]
	}

	Describe("POST /api/analyses", func() {
		When("the upload is a receipt image", func() {
			It("should return the created analysis", func() {
				resp := upload(nil, "receipt.png", pngBytes())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var a Analysis
				Expect(json.NewDecoder(resp.Body).Decode(&a)).To(Succeed())
				Expect(a.ID).To(Equal("id-1"))
				Expect(a.Result.Sender).To(Equal("Juan Perez"))
				Expect(a.Result.Valid).To(BeTrue())
			})
		})

		When("no file is sent", func() {
			It("should return bad request", func() {
				resp := upload(map[string]string{"pipeline": "local"}, "", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeError(resp)).To(Equal("no file provided"))
			})
		})

		When("the pipeline is not configured", func() {
			It("should return bad request", func() {
				resp := upload(map[string]string{"pipeline": "cloud"}, "receipt.png", pngBytes())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeError(resp)).To(Equal("unknown pipeline"))
			})
		})

		When("the format is unsupported", func() {
			It("should return 415", func() {
				resp := upload(nil, "notes.txt", []byte("plain text"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnsupportedMediaType))
				Expect(decodeError(resp)).To(Equal("unsupported format"))
			})
		})

		When("the analysis fails", func() {
			BeforeEach(func() {
				analyzer.err = analysis.ErrProcessingFailed
			})

			It("should hide the cause", func() {
				resp := upload(nil, "receipt.png", pngBytes())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(decodeError(resp)).To(Equal("processing failed"))
			})
		})
	})

	Describe("GET /api/analyses", func() {
		When("analyses exist", func() {
			BeforeEach(func() {
				db.analyses["a"] = &Analysis{ID: "a"}
				db.analyses["b"] = &Analysis{ID: "b"}
			})

			It("should list them", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/analyses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var list []*Analysis
				Expect(json.NewDecoder(resp.Body).Decode(&list)).To(Succeed())
				Expect(list).To(HaveLen(2))
			})
		})

		When("none exist", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/analyses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(bytes.TrimSpace(body))).To(Equal("[]"))
			})
		})
	})

	Describe("GET /api/analyses/{id}", func() {
		BeforeEach(func() {
			db.analyses["a"] = &Analysis{ID: "a", Filename: "2024/03/a_r.png", ContentType: "image/png"}
			storage.files["2024/03/a_r.png"] = []byte("png-data")
		})

		It("should return the analysis", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses/a")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should return the file", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses/a/file")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			body, _ := io.ReadAll(resp.Body)
			Expect(body).To(Equal([]byte("png-data")))
		})

		It("should return 404 for unknown IDs", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses/missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decodeError(resp)).To(Equal("analysis not found"))
		})
	})

	Describe("DELETE /api/analyses/{id}", func() {
		BeforeEach(func() {
			db.analyses["a"] = &Analysis{ID: "a", Filename: "2024/03/a_r.png"}
			storage.files["2024/03/a_r.png"] = []byte("png-data")
		})

		It("should delete the analysis", func() {
			req, _ := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/analyses/a", nil)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.analyses).To(BeEmpty())
		})

		It("should return 404 for unknown IDs", func() {
			req, _ := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/analyses/missing", nil)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should reject requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("should accept valid credentials", func() {
			req, _ := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/analyses", nil)
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should leave the health check open", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("CORS preflight", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should answer OPTIONS without auth", func() {
			req, _ := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/analyses", nil)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
		})
	})
})
