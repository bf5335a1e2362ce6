package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Errors", func() {
	DescribeTable("HTTPStatus",
		func(err error, want int) {
			Expect(HTTPStatus(err)).To(Equal(want))
		},
		Entry("nil", nil, http.StatusOK),
		Entry("invalid input", InvalidInputf("bad %s", "x"), http.StatusBadRequest),
		Entry("wrapped validation", fmt.Errorf("outer: %w", ErrValidation), http.StatusBadRequest),
		Entry("unauthorized", ErrUnauthorized, http.StatusUnauthorized),
		Entry("not found", NotFoundf("report %q", "r"), http.StatusNotFound),
		Entry("unavailable", WrapError(ErrUnavailable, "llm"), http.StatusServiceUnavailable),
		Entry("anything else", errors.New("boom"), http.StatusInternalServerError),
	)

	It("formats AppError with and without a cause", func() {
		Expect(NewAppError("X", "msg", nil).Error()).To(Equal("X: msg"))
		Expect(NewAppError("X", "msg", io.EOF).Error()).To(Equal("X: msg: EOF"))
		Expect(errors.Is(NewAppError("X", "msg", io.EOF), io.EOF)).To(BeTrue())
	})

	It("leaves nil alone in WrapError", func() {
		Expect(WrapError(nil, "ctx")).To(BeNil())
	})
})

var _ = Describe("Validator", func() {
	neg := decimal.NewFromInt(-1)

	It("collects failures in field order", func() {
		v := NewValidator().
			Field("vendor_name", "  ", Required).
			Field("total_amount", &neg, Required, NonNegative).
			Field("currency", "usd", CurrencyCode)

		Expect(v.HasErrors()).To(BeTrue())
		Expect(v.Errors()).To(HaveLen(3))
		Expect(v.ErrorMessage()).To(Equal(
			"vendor_name is required; total_amount must not be negative; currency must be 3 uppercase letters (ISO 4217)"))
		Expect(errors.Is(v.Error(), ErrValidation)).To(BeTrue())
	})

	It("passes valid and blank optional values", func() {
		var missing *decimal.Decimal
		v := NewValidator().
			Field("vendor_name", "Acme", Required).
			Field("total_amount", missing, NonNegative).
			Field("currency", "", CurrencyCode)
		Expect(v.HasErrors()).To(BeFalse())
		Expect(v.Error()).To(BeNil())
	})

	It("treats a nil decimal pointer as missing", func() {
		var missing *decimal.Decimal
		Expect(Required("total_amount", missing)).NotTo(BeNil())
	})
})

var _ = Describe("Context helpers", func() {
	It("round-trips ids", func() {
		ctx := WithSubject(WithBatchID(WithRequestID(context.Background(), "r1"), "b1"), "ops")
		Expect(RequestIDFromContext(ctx)).To(Equal("r1"))
		Expect(BatchIDFromContext(ctx)).To(Equal("b1"))
		Expect(SubjectFromContext(ctx)).To(Equal("ops"))
		Expect(RequestIDFromContext(context.Background())).To(BeEmpty())
	})

	It("leaves the context unbounded for a zero timeout", func() {
		ctx, cancel := WithTimeout(context.Background(), 0)
		defer cancel()
		_, ok := ctx.Deadline()
		Expect(ok).To(BeFalse())

		ctx2, cancel2 := WithTimeout(context.Background(), time.Minute)
		defer cancel2()
		_, ok = ctx2.Deadline()
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("ParseLevel", func() {
	DescribeTable("maps names to levels",
		func(in string, want slog.Level) {
			Expect(ParseLevel(in)).To(Equal(want))
		},
		Entry("debug", "DEBUG", slog.LevelDebug),
		Entry("warning", "warning", slog.LevelWarn),
		Entry("error", " error ", slog.LevelError),
		Entry("unknown", "verbose", slog.LevelInfo),
	)
})
