package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind tells the retry policy whether an extraction failure is worth another attempt.
type ErrorKind string

const (
	KindTransient ErrorKind = "transient" // rate limit, timeout, 5xx, network
	KindPermanent ErrorKind = "permanent" // auth, quota exhaustion, other 4xx
	KindMalformed ErrorKind = "malformed" // reply not parseable against the schema
)

// ExtractionError is returned by ExtractFields and by Completer implementations.
type ExtractionError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *ExtractionError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" extraction error")
	if e.Provider != "" {
		b.WriteString(" from ")
		b.WriteString(e.Provider)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func Transient(provider string, status int, err error) *ExtractionError {
	return &ExtractionError{Kind: KindTransient, Provider: provider, StatusCode: status, Err: err}
}

func Permanent(provider string, status int, err error) *ExtractionError {
	return &ExtractionError{Kind: KindPermanent, Provider: provider, StatusCode: status, Err: err}
}

func Malformed(provider string, err error) *ExtractionError {
	return &ExtractionError{Kind: KindMalformed, Provider: provider, Err: err}
}

// KindOf returns the kind carried by err, or "" when err is not an ExtractionError.
func KindOf(err error) ErrorKind {
	var xe *ExtractionError
	if errors.As(err, &xe) {
		return xe.Kind
	}
	return ""
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// ClassifyStatus maps an HTTP status (0 for no response) and the provider's error code/type text to a kind.
func ClassifyStatus(status int, code string) ErrorKind {
	code = strings.ToLower(code)
	switch {
	case status == 0:
		return KindTransient
	case status == http.StatusTooManyRequests:
		if strings.Contains(code, "insufficient_quota") || strings.Contains(code, "billing") {
			return KindPermanent
		}
		return KindTransient
	case status == http.StatusRequestTimeout, status == http.StatusConflict:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
