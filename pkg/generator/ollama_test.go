package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/inkwell/pkg/genstream"
	"github.com/inkwellhq/inkwell/pkg/logger"
)

var _ = Describe("Ollama", func() {
	var (
		ctx context.Context
		rec *recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = &recorder{}
	})

	It("streams /api/chat chunks into aiContent", func() {
		var got ollamaChatRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			body, _ := io.ReadAll(r.Body)
			Expect(json.Unmarshal(body, &got)).To(Succeed())

			flusher := w.(http.Flusher)
			// The second line is split across writes.
			for _, part := range []string{
				`{"message":{"role":"assistant","content":"# Hello"},"done":false}` + "\n" + `{"message":{"role":"assis`,
				`tant","content":" there"},"done":false}` + "\n",
				`{"message":{"role":"assistant","content":""},"done":true}` + "\n",
			} {
				_, _ = io.WriteString(w, part)
				flusher.Flush()
			}
		}))
		defer server.Close()

		g := NewOllama(server.URL+"/", "", server.Client(), logger.Nop())
		Expect(Run(ctx, g, Request{Kind: KindProject, ProjectID: "p1"}, rec)).To(Succeed())

		Expect(got.Model).To(Equal(defaultOllamaModel))
		Expect(got.Stream).To(BeTrue())
		Expect(got.Messages).To(HaveLen(2))

		session, err := replay(rec.events)
		Expect(err).NotTo(HaveOccurred())
		html, _ := session.ContentString(genstream.KeyAIContent)
		Expect(html).To(ContainSubstring("<h1>Hello there</h1>"))
	})

	It("reports non-200 responses with the body", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		g := NewOllama(server.URL, "missing", server.Client(), logger.Nop())
		err := Run(ctx, g, Request{Kind: KindProject, ProjectID: "p1"}, rec)
		Expect(err).To(MatchError(ContainSubstring("ollama status 404: model not found")))
	})

	It("reports in-stream errors", func() {
		err := readOllamaStream(strings.NewReader(`{"error":"out of memory"}`+"\n"), func(string) error { return nil })
		Expect(err).To(MatchError("ollama error: out of memory"))
	})

	It("handles a final line without a newline", func() {
		var text strings.Builder
		err := readOllamaStream(strings.NewReader(`{"message":{"content":"tail"},"done":true}`), func(d string) error {
			text.WriteString(d)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(text.String()).To(Equal("tail"))
	})

	It("rejects malformed chunks", func() {
		err := readOllamaStream(strings.NewReader("not json\n"), func(string) error { return nil })
		Expect(err).To(MatchError(ContainSubstring("decode ollama chunk")))
	})
})
