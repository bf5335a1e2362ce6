package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeCompleter struct {
	mu      sync.Mutex
	replies []func(ctx context.Context) (string, error)
	calls   int
	last    CompletionRequest
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.last = req
	f.mu.Unlock()
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i](ctx)
}

func reply(s string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return s, nil }
}

func fail(err error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return "", err }
}

var _ = Describe("Client", func() {
	var (
		logger    *slog.Logger
		completer *fakeCompleter
		client    *Client
		cfg       ClientConfig
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		completer = &fakeCompleter{}
		cfg = ClientConfig{Policy: DefaultRetryPolicy(), AttemptTimeout: time.Second, MaxTextChars: 50}
		cfg.Policy.Sleep = func(context.Context, time.Duration) error { return nil }
	})

	JustBeforeEach(func() {
		var err error
		client, err = NewClient(completer, cfg, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	When("the first reply is valid", func() {
		BeforeEach(func() {
			completer.replies = append(completer.replies,
				reply(`{"vendor_name":"Acme","total_amount":120.5,"currency":"EUR"}`))
		})

		It("returns the parsed fields after one attempt", func() {
			fields, raw, err := client.ExtractFields(context.Background(), ExtractRequest{Text: "Invoice", FilenameHint: "a.pdf"})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(ContainSubstring("Acme"))
			Expect(fields.VendorName).To(Equal("Acme"))
			Expect(fields.Currency).To(Equal("EUR"))
			Expect(fields.TotalAmount.String()).To(Equal("120.5"))
			Expect(completer.calls).To(Equal(1))
		})

		It("sends the schema, the filename and truncated text", func() {
			_, _, err := client.ExtractFields(context.Background(), ExtractRequest{
				Text:         strings.Repeat("x", 200),
				FilenameHint: "a.pdf",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.last.System).To(ContainSubstring("JSON Schema"))
			Expect(completer.last.System).To(ContainSubstring("total_amount"))
			Expect(completer.last.User).To(ContainSubstring("Filename: a.pdf"))
			Expect(completer.last.User).To(ContainSubstring("(truncated)"))
			Expect(completer.last.User).NotTo(ContainSubstring(strings.Repeat("x", 51)))
		})
	})

	When("the service is rate limited twice", func() {
		BeforeEach(func() {
			rl := Transient("fake", 429, errors.New("slow down"))
			completer.replies = append(completer.replies, fail(rl), fail(rl),
				reply(`{"vendor_name":"Acme","total_amount":1}`))
		})

		It("succeeds on the third attempt", func() {
			fields, _, err := client.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
			Expect(err).NotTo(HaveOccurred())
			Expect(fields.VendorName).To(Equal("Acme"))
			Expect(completer.calls).To(Equal(3))
		})
	})

	When("the service keeps failing transiently", func() {
		BeforeEach(func() {
			completer.replies = append(completer.replies, fail(Transient("fake", 503, errors.New("down"))))
		})

		It("reports a transient error with the attempt count", func() {
			_, _, err := client.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
			var xe *ExtractionError
			Expect(errors.As(err, &xe)).To(BeTrue())
			Expect(xe.Kind).To(Equal(KindTransient))
			Expect(xe.Attempts).To(Equal(3))
			Expect(completer.calls).To(Equal(3))
		})
	})

	When("authentication fails", func() {
		BeforeEach(func() {
			completer.replies = append(completer.replies, fail(Permanent("fake", 401, errors.New("bad key"))))
		})

		It("does not retry", func() {
			_, _, err := client.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
			Expect(KindOf(err)).To(Equal(KindPermanent))
			Expect(completer.calls).To(Equal(1))
		})
	})

	When("the reply is malformed", func() {
		BeforeEach(func() {
			completer.replies = append(completer.replies, reply("sorry, no JSON here"))
		})

		It("fails without retrying", func() {
			_, _, err := client.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
			Expect(KindOf(err)).To(Equal(KindMalformed))
			Expect(completer.calls).To(Equal(1))
		})
	})

	When("an attempt exceeds its timeout", func() {
		BeforeEach(func() {
			cfg.AttemptTimeout = 20 * time.Millisecond
			slow := func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}
			completer.replies = append(completer.replies, slow, reply(`{"vendor_name":"Acme"}`))
		})

		It("treats the timeout as transient and retries", func() {
			fields, _, err := client.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
			Expect(err).NotTo(HaveOccurred())
			Expect(fields.VendorName).To(Equal("Acme"))
			Expect(completer.calls).To(Equal(2))
		})
	})

	When("the caller cancels", func() {
		BeforeEach(func() {
			completer.replies = append(completer.replies, func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			})
		})

		It("returns the context error without retrying", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, _, err := client.ExtractFields(ctx, ExtractRequest{Text: "t"})
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(completer.calls).To(Equal(1))
		})
	})

	When("a completer returns an unclassified error", func() {
		BeforeEach(func() {
			completer.replies = append(completer.replies, fail(errors.New("boom")))
		})

		It("treats it as permanent", func() {
			_, _, err := client.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
			Expect(KindOf(err)).To(Equal(KindPermanent))
			Expect(completer.calls).To(Equal(1))
		})
	})
})
