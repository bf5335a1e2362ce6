package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

var _ = Describe("run", func() {
	var (
		dir    string
		stdout *bytes.Buffer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		stdout = &bytes.Buffer{}
		GinkgoT().Setenv("CONFIG_FILE", "")
		GinkgoT().Setenv("LLM_PROVIDER", "openai")
		GinkgoT().Setenv("LLM_API_KEY", "test-key")
	})

	It("treats a missing --dir as a usage error", func() {
		err := run(context.Background(), nil, stdout, io.Discard)
		var ue usageError
		Expect(errors.As(err, &ue)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("--dir is required")))
	})

	It("treats a missing api key as a usage error", func() {
		GinkgoT().Setenv("LLM_API_KEY", "")
		GinkgoT().Setenv("OPENAI_API_KEY", "")
		err := run(context.Background(), []string{"--dir", dir}, stdout, io.Discard)
		var ue usageError
		Expect(errors.As(err, &ue)).To(BeTrue())
	})

	It("returns the batch error after wiring instead of exiting", func() {
		Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a pdf"), 0o644)).To(Succeed())

		err := run(context.Background(), []string{"--dir", dir, "--log-level", "error"}, stdout, io.Discard)
		Expect(errors.Is(err, pipeline.ErrEmptyBatch)).To(BeTrue())
		var ue usageError
		Expect(errors.As(err, &ue)).To(BeFalse())
		Expect(stdout.Len()).To(BeZero())
	})
})
