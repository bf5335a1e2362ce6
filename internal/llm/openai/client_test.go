package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

var _ = Describe("Client", func() {
	var (
		server *ghttp.Server
		client *Client
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		client, err = NewClient(Config{
			APIKey:  "test-key",
			BaseURL: server.URL() + "/v1",
			Model:   "gpt-4o-mini",
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	req := llm.CompletionRequest{System: "sys", User: "user"}

	When("the API answers", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
				func(w http.ResponseWriter, r *http.Request) {
					var body map[string]any
					Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
					Expect(body).To(HaveKeyWithValue("model", "gpt-4o-mini"))
					Expect(body).To(HaveKeyWithValue("response_format", HaveKeyWithValue("type", "json_object")))
					Expect(body["messages"]).To(HaveLen(2))
				},
				ghttp.RespondWith(http.StatusOK, `{
					"id": "chatcmpl-1",
					"object": "chat.completion",
					"choices": [{"index": 0, "finish_reason": "stop",
						"message": {"role": "assistant", "content": "  {\"vendor_name\":\"Acme\"}  "}}],
					"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
				}`, http.Header{"Content-Type": []string{"application/json"}}),
			))
		})

		It("returns the trimmed message content", func() {
			out, err := client.Complete(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(`{"vendor_name":"Acme"}`))
		})
	})

	When("the API returns no choices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"id":"x","choices":[]}`,
				http.Header{"Content-Type": []string{"application/json"}}))
		})

		It("reports a malformed reply", func() {
			_, err := client.Complete(context.Background(), req)
			Expect(llm.KindOf(err)).To(Equal(llm.KindMalformed))
		})
	})

	DescribeTable("error classification",
		func(status int, body string, want llm.ErrorKind) {
			server.AppendHandlers(ghttp.RespondWith(status, body,
				http.Header{"Content-Type": []string{"application/json"}}))
			_, err := client.Complete(context.Background(), req)
			Expect(err).To(HaveOccurred())
			Expect(llm.KindOf(err)).To(Equal(want))
		},
		Entry("rate limit", http.StatusTooManyRequests,
			`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`, llm.KindTransient),
		Entry("quota exhausted", http.StatusTooManyRequests,
			`{"error":{"message":"quota","type":"insufficient_quota","code":"insufficient_quota"}}`, llm.KindPermanent),
		Entry("bad key", http.StatusUnauthorized,
			`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`, llm.KindPermanent),
		Entry("server error", http.StatusInternalServerError,
			`{"error":{"message":"oops","type":"server_error"}}`, llm.KindTransient),
		Entry("unparseable error body", http.StatusBadGateway, `<html>bad gateway</html>`, llm.KindTransient),
	)
})
