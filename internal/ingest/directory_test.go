package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func names(files []entity.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

var _ = Describe("CollectPDFs", func() {
	var (
		root   string
		logger *slog.Logger
	)

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	}

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))

		write("b.pdf", "%PDF-b")
		write("a.PDF", "%PDF-a")
		write("notes.txt", "not an invoice")
		write(".hidden.pdf", "%PDF-h")
		write("sub/c.pdf", "%PDF-c")
		write(".cache/d.pdf", "%PDF-d")
	})

	It("loads top-level PDFs in name order", func() {
		files, skipped, stats, err := CollectPDFs(root, Options{SkipHidden: true}, logger)
		Expect(err).NotTo(HaveOccurred())
		Expect(skipped).To(BeEmpty())
		Expect(names(files)).To(Equal([]string{"a.PDF", "b.pdf"}))
		Expect(files[0].Data).To(Equal([]byte("%PDF-a")))
		Expect(stats.Matched).To(Equal(2))
		Expect(stats.Collected).To(Equal(2))
	})

	It("descends into subdirectories when recursive", func() {
		files, _, _, err := CollectPDFs(root, Options{Recursive: true, SkipHidden: true}, logger)
		Expect(err).NotTo(HaveOccurred())
		Expect(names(files)).To(Equal([]string{"a.PDF", "b.pdf", "sub/c.pdf"}))
	})

	It("includes hidden entries unless told to skip them", func() {
		files, _, _, err := CollectPDFs(root, Options{Recursive: true}, logger)
		Expect(err).NotTo(HaveOccurred())
		Expect(names(files)).To(ContainElements(".hidden.pdf", ".cache/d.pdf"))
	})

	It("skips files over the size limit", func() {
		write("big.pdf", "%PDF-0123456789")
		files, skipped, stats, err := CollectPDFs(root, Options{SkipHidden: true, MaxBytes: 8}, logger)
		Expect(err).NotTo(HaveOccurred())
		Expect(names(files)).To(Equal([]string{"a.PDF", "b.pdf"}))
		Expect(skipped).To(HaveLen(1))
		Expect(skipped[0].Path).To(HaveSuffix("big.pdf"))
		Expect(stats.Skipped).To(Equal(1))
	})

	It("keeps byte-identical files and counts them", func() {
		write("copy.pdf", "%PDF-a")
		files, _, stats, err := CollectPDFs(root, Options{SkipHidden: true}, logger)
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(3))
		Expect(stats.Duplicates).To(Equal(1))
	})

	It("fails for a missing root", func() {
		_, _, _, err := CollectPDFs(filepath.Join(root, "nope"), Options{}, logger)
		Expect(err).To(HaveOccurred())
	})

	It("requires a root", func() {
		_, _, _, err := CollectPDFs(" ", Options{}, logger)
		Expect(err).To(MatchError("root path is required"))
	})
})
