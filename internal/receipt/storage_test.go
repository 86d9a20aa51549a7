package receipt

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			path      string
			data      []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			path = "2024/03/id_receipt.jpg"
			data = []byte("test file content")
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(path, data)
		})

		When("saving succeeds", func() {
			It("should return the relative path", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedPath).To(Equal(path))
			})

			It("should create the month directory", func() {
				content, readErr := os.ReadFile(filepath.Join(tmpDir, "2024", "03", "id_receipt.jpg"))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(content).To(Equal(data))
			})
		})

		When("the path escapes the base directory", func() {
			BeforeEach(func() {
				path = "../outside.jpg"
			})

			It("should refuse it", func() {
				Expect(errors.Is(err, ErrInvalidPath)).To(BeTrue())
				_, statErr := os.Stat(filepath.Join(filepath.Dir(tmpDir), "outside.jpg"))
				Expect(os.IsNotExist(statErr)).To(BeTrue())
			})
		})

		When("the path is absolute", func() {
			BeforeEach(func() {
				path = filepath.Join(tmpDir, "abs.jpg")
			})

			It("should refuse it", func() {
				Expect(errors.Is(err, ErrInvalidPath)).To(BeTrue())
			})
		})
	})

	Describe("Get and Delete", func() {
		BeforeEach(func() {
			_, err := storage.Save("2024/03/file.png", []byte("png"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should read the file back", func() {
			data, err := storage.Get("2024/03/file.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("png")))
		})

		It("should refuse traversal on read", func() {
			_, err := storage.Get("2024/../../etc/passwd")
			Expect(errors.Is(err, ErrInvalidPath)).To(BeTrue())
		})

		It("should delete the file", func() {
			Expect(storage.Delete("2024/03/file.png")).To(Succeed())
			_, err := storage.Get("2024/03/file.png")
			Expect(err).To(HaveOccurred())
		})

		It("should fail deleting a missing file", func() {
			Expect(storage.Delete("2024/03/missing.png")).NotTo(Succeed())
		})
	})
})
