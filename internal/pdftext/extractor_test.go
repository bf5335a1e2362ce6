package pdftext

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeBackend struct {
	name  string
	text  string
	pages int
	err   error
	calls int
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Text(_ context.Context, _ []byte) (string, int, error) {
	b.calls++
	return b.text, b.pages, b.err
}

type fakeRunner struct {
	stdout, stderr string
	err            error
	args           []string
	sawFile        bool
}

func (r *fakeRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	r.args = args
	// the temp file must exist while the command runs
	_, statErr := os.Stat(args[len(args)-2])
	r.sawFile = statErr == nil
	return []byte(r.stdout), []byte(r.stderr), r.err
}

const pdfBytes = "%PDF-1.4\n1 0 obj\n"

var _ = Describe("Extractor", func() {
	var (
		logger *slog.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx = context.Background()
	})

	newExtractor := func(bs ...Backend) *Extractor {
		e, err := NewExtractor(Config{}, logger, WithBackends(bs...))
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	expectReason := func(err error, reason Reason) {
		f, ok := AsFailure(err)
		Expect(ok).To(BeTrue(), "expected ExtractionFailure, got %v", err)
		Expect(f.Reason).To(Equal(reason))
	}

	It("returns the first backend's text", func() {
		first := &fakeBackend{name: "native", text: "INVOICE  #12\r\nTotal: $1,234.56", pages: 1}
		second := &fakeBackend{name: "poppler", text: "unused"}

		res, err := newExtractor(first, second).Extract(ctx, []byte(pdfBytes))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal("native"))
		Expect(res.Pages).To(Equal(1))
		Expect(res.Text).To(Equal("INVOICE #12\nTotal: $1,234.56"))
		Expect(res.Confidence).To(BeNumerically(">", 0.5))
		Expect(second.calls).To(BeZero())
	})

	It("falls through to the next backend", func() {
		first := &fakeBackend{name: "native", err: corrupt("native", errors.New("bad xref"))}
		second := &fakeBackend{name: "poppler", text: "Invoice", pages: 2}

		res, err := newExtractor(first, second).Extract(ctx, []byte(pdfBytes))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal("poppler"))
		Expect(res.Pages).To(Equal(2))
	})

	It("fails empty on zero-length input", func() {
		_, err := newExtractor(&fakeBackend{name: "native"}).Extract(ctx, nil)
		expectReason(err, ReasonEmpty)
	})

	It("fails unsupported without a PDF header", func() {
		b := &fakeBackend{name: "native"}
		_, err := newExtractor(b).Extract(ctx, []byte("PK\x03\x04 docx"))
		expectReason(err, ReasonUnsupported)
		Expect(b.calls).To(BeZero())
	})

	It("fails empty when no backend finds a text layer", func() {
		_, err := newExtractor(
			&fakeBackend{name: "native", text: " \n\f\n ", pages: 1},
			&fakeBackend{name: "poppler", text: "", pages: 1},
		).Extract(ctx, []byte(pdfBytes))
		expectReason(err, ReasonEmpty)
	})

	It("reports the most specific failure", func() {
		_, err := newExtractor(
			&fakeBackend{name: "native", err: unsupported("native", "password protected")},
			&fakeBackend{name: "poppler", err: corrupt("poppler", errors.New("syntax error"))},
		).Extract(ctx, []byte(pdfBytes))
		expectReason(err, ReasonUnsupported)
	})

	It("wraps operational errors that say nothing about the document", func() {
		_, err := newExtractor(&fakeBackend{name: "poppler", err: errors.New("exec: not found")}).
			Extract(ctx, []byte(pdfBytes))
		Expect(err).To(MatchError(ContainSubstring("no pdf backend could read the document")))
		_, ok := AsFailure(err)
		Expect(ok).To(BeFalse())
	})

	It("stops on cancellation", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newExtractor(&fakeBackend{name: "native", text: "x"}).Extract(cctx, []byte(pdfBytes))
		Expect(err).To(MatchError(context.Canceled))
	})

	It("rejects unknown backend names", func() {
		_, err := NewExtractor(Config{Backends: []string{"tesseract"}}, logger)
		Expect(err).To(MatchError(ContainSubstring("unknown pdf backend")))
	})

	It("builds the configured backends in order", func() {
		e, err := NewExtractor(Config{Backends: []string{"poppler", "mupdf", "native"}}, logger)
		Expect(err).NotTo(HaveOccurred())
		var names []string
		for _, b := range e.backends {
			names = append(names, b.Name())
		}
		Expect(names).To(Equal([]string{"poppler", "mupdf", "native"}))
	})

	Describe("NativeBackend", func() {
		It("reports garbage as corrupt", func() {
			_, _, err := NativeBackend{}.Text(ctx, []byte("%PDF-1.4 this is not a pdf"))
			expectReason(err, ReasonCorrupt)
		})
	})

	Describe("PopplerBackend", func() {
		var runner *fakeRunner

		BeforeEach(func() {
			runner = &fakeRunner{}
		})

		text := func() (string, int, error) {
			return PopplerBackend{Bin: "pdftotext", Runner: runner, Logger: logger}.Text(ctx, []byte(pdfBytes))
		}

		It("counts form-feed separated pages and removes the temp file", func() {
			runner.stdout = "page one\fpage two\f\n"
			out, pages, err := text()
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("page one\fpage two"))
			Expect(pages).To(Equal(2))

			Expect(runner.args[:5]).To(Equal([]string{"-layout", "-enc", "UTF-8", "-eol", "unix"}))
			Expect(runner.args[len(runner.args)-1]).To(Equal("-"))
			Expect(runner.sawFile).To(BeTrue())
			_, err = os.Stat(runner.args[len(runner.args)-2])
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		DescribeTable("classifies pdftotext failures",
			func(stderr string, reason Reason) {
				runner.err = errors.New("exit status 1")
				runner.stderr = stderr
				_, _, err := text()
				expectReason(err, reason)
			},
			Entry("password", "Command Line Error: Incorrect password", ReasonUnsupported),
			Entry("syntax", "Syntax Error: Couldn't find trailer dictionary", ReasonCorrupt),
			Entry("not a pdf", "May not be a PDF file (continuing anyway)", ReasonCorrupt),
		)

		It("does not blame the document when the binary is missing", func() {
			runner.err = errors.New(`exec: "pdftotext": executable file not found in $PATH`)
			_, _, err := text()
			_, ok := AsFailure(err)
			Expect(ok).To(BeFalse())
			Expect(err).To(MatchError(ContainSubstring("pdftotext")))
		})
	})
})

var _ = Describe("Normalize", func() {
	DescribeTable("cleans extracted text",
		func(in, want string) {
			Expect(Normalize(in)).To(Equal(want))
		},
		Entry("empty", "", ""),
		Entry("crlf", "a\r\nb\rc", "a\nb\nc"),
		Entry("tabs and runs of spaces", "Total\t\t$5   00", "Total $5 00"),
		Entry("table rules", "Item\n-----\nWidget", "Item\n\nWidget"),
		Entry("blank runs", "a\n\n\n\n\nb", "a\n\nb"),
		Entry("trailing spaces", "a   \nb  ", "a\nb"),
		Entry("nul bytes", "a\x00b", "ab"),
	)
})

var _ = Describe("textConfidence", func() {
	It("scores invoice-like text above plain prose", func() {
		invoice := "INVOICE\nDate: 2025-01-15\nSubtotal: $1,000.00\nTotal: $1,080.00"
		prose := "hello world"
		Expect(textConfidence(invoice)).To(BeNumerically(">", textConfidence(prose)))
		Expect(textConfidence(prose)).To(BeNumerically("~", 0.2, 0.001))
	})

	It("never exceeds one", func() {
		long := "Invoice total USD 1,234.56 due 2025-01-01 " + string(make([]byte, 200))
		Expect(textConfidence(long)).To(BeNumerically("<=", 1.0))
	})
})
