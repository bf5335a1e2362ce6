package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RetryPolicy", func() {
	var (
		logger *slog.Logger
		policy RetryPolicy
		slept  []time.Duration
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		slept = nil
		policy = DefaultRetryPolicy()
		policy.Sleep = func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}
	})

	Describe("Delay", func() {
		It("grows exponentially and caps at MaxDelay", func() {
			Expect(policy.Delay(1)).To(Equal(time.Second))
			Expect(policy.Delay(2)).To(Equal(2 * time.Second))
			Expect(policy.Delay(3)).To(Equal(4 * time.Second))
			Expect(policy.Delay(5)).To(Equal(10 * time.Second))
			Expect(policy.Delay(50)).To(Equal(10 * time.Second))
		})
	})

	Describe("Do", func() {
		It("retries transient errors until success", func() {
			calls := 0
			attempts, err := policy.Do(context.Background(), logger, func(context.Context, int) error {
				calls++
				if calls < 3 {
					return Transient("fake", 429, errors.New("rate limited"))
				}
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(attempts).To(Equal(3))
			Expect(slept).To(Equal([]time.Duration{time.Second, 2 * time.Second}))
		})

		It("gives up after MaxAttempts", func() {
			attempts, err := policy.Do(context.Background(), logger, func(context.Context, int) error {
				return Transient("fake", 503, errors.New("unavailable"))
			})
			Expect(err).To(HaveOccurred())
			Expect(IsTransient(err)).To(BeTrue())
			Expect(attempts).To(Equal(3))
			Expect(slept).To(HaveLen(2))
		})

		It("does not retry permanent errors", func() {
			attempts, err := policy.Do(context.Background(), logger, func(context.Context, int) error {
				return Permanent("fake", 401, errors.New("bad key"))
			})
			Expect(KindOf(err)).To(Equal(KindPermanent))
			Expect(attempts).To(Equal(1))
			Expect(slept).To(BeEmpty())
		})

		It("does not retry malformed replies", func() {
			attempts, err := policy.Do(context.Background(), logger, func(context.Context, int) error {
				return Malformed("fake", errors.New("not json"))
			})
			Expect(KindOf(err)).To(Equal(KindMalformed))
			Expect(attempts).To(Equal(1))
		})

		It("stops when the wait is cancelled", func() {
			policy.Sleep = func(context.Context, time.Duration) error { return context.Canceled }
			attempts, err := policy.Do(context.Background(), logger, func(context.Context, int) error {
				return Transient("fake", 0, errors.New("network"))
			})
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(attempts).To(Equal(1))
		})
	})
})

var _ = Describe("ClassifyStatus", func() {
	DescribeTable("status to kind",
		func(status int, code string, want ErrorKind) {
			Expect(ClassifyStatus(status, code)).To(Equal(want))
		},
		Entry("no response", 0, "", KindTransient),
		Entry("rate limited", 429, "rate_limit_exceeded", KindTransient),
		Entry("quota exhausted", 429, "insufficient_quota", KindPermanent),
		Entry("request timeout", 408, "", KindTransient),
		Entry("conflict", 409, "", KindTransient),
		Entry("server error", 500, "", KindTransient),
		Entry("bad gateway", 502, "", KindTransient),
		Entry("unauthorized", 401, "invalid_api_key", KindPermanent),
		Entry("forbidden", 403, "", KindPermanent),
		Entry("bad request", 400, "", KindPermanent),
	)
})
