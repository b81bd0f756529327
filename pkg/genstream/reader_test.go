package genstream_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/inkwell/pkg/genstream"
	"github.com/inkwellhq/inkwell/pkg/logger"
)

// chunkReader yields its chunks one Read at a time, then err (io.EOF when
// err is nil).
type chunkReader struct {
	chunks []string
	err    error
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}

	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

// collect runs r to completion and returns every event it delivered.
func collect(r *genstream.Reader) ([]genstream.Event, error) {
	var events []genstream.Event
	err := r.Run(context.Background(), func(_ context.Context, ev genstream.Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

var _ = Describe("Reader", func() {
	Describe("Run", func() {
		It("delivers one event per line in order", func() {
			src := strings.NewReader(
				"{\"type\":\"progress\",\"progress\":10}\n" +
					"{\"type\":\"data\",\"key\":\"aiContent\",\"value\":\"hi\"}\n" +
					"{\"type\":\"complete\"}\n",
			)

			events, err := collect(genstream.NewReader(src))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(3))
			Expect(events[0].Type).To(Equal(genstream.EventProgress))
			Expect(*events[0].Progress).To(Equal(10))
			Expect(events[1].Type).To(Equal(genstream.EventData))
			Expect(events[1].Key).To(Equal("aiContent"))
			Expect(events[2].Type).To(Equal(genstream.EventComplete))
		})

		It("is independent of how chunks split the lines", func() {
			payload := "{\"type\":\"progress\",\"progress\":1,\"message\":\"a\"}\n" +
				"{\"type\":\"progress\",\"progress\":2,\"message\":\"b\"}\n" +
				"{\"type\":\"data\",\"key\":\"fieldValue\",\"value\":{\"x\":\"y\"}}\n" +
				"{\"type\":\"complete\",\"data\":{\"aiContent\":\"final\"}}\n"

			want, err := collect(genstream.NewReader(strings.NewReader(payload)))
			Expect(err).NotTo(HaveOccurred())
			Expect(want).To(HaveLen(4))

			for _, size := range []int{1, 2, 3, 7, 16, 50} {
				var chunks []string
				for i := 0; i < len(payload); i += size {
					chunks = append(chunks, payload[i:min(i+size, len(payload))])
				}

				got, err := collect(genstream.NewReader(&chunkReader{chunks: chunks}))
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want), "chunk size %d", size)
			}
		})

		It("yields exactly one event for a line split across three chunks", func() {
			src := &chunkReader{chunks: []string{
				`{"type":"data",`,
				`"key":"aiContent",`,
				"\"value\":\"<p>Hello</p>\"}\n",
			}}

			events, err := collect(genstream.NewReader(src))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(string(events[0].Value)).To(Equal(`"<p>Hello</p>"`))
		})

		It("parses a trailing line without a newline at end of stream", func() {
			src := &chunkReader{chunks: []string{
				"{\"type\":\"progress\",\"progress\":50}\n",
				`{"type":"complete","data":{"aiContent":"x"}}`,
			}}

			events, err := collect(genstream.NewReader(src))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[1].Type).To(Equal(genstream.EventComplete))
		})

		It("skips malformed lines and keeps going", func() {
			var logs bytes.Buffer
			src := strings.NewReader(
				"{\"type\":\"progress\",\"progress\":1}\n" +
					"not json at all\n" +
					"{\"type\":\"progress\",\n" +
					"{\"type\":\"progress\",\"progress\":2}\n",
			)

			r := genstream.NewReader(src, genstream.WithLogger(logger.New(logger.WithWriter(&logs))))
			events, err := collect(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(*events[1].Progress).To(Equal(2))

			stats := r.Stats()
			Expect(stats.Lines).To(Equal(4))
			Expect(stats.Events).To(Equal(2))
			Expect(stats.Malformed).To(Equal(2))
			Expect(logs.String()).To(ContainSubstring("skipping malformed stream line"))
		})

		It("delivers unknown event types untouched", func() {
			events, err := collect(genstream.NewReader(strings.NewReader("{\"type\":\"heartbeat\"}\n")))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type.Known()).To(BeFalse())
		})

		It("returns nothing for an empty stream", func() {
			events, err := collect(genstream.NewReader(strings.NewReader("")))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
		})

		It("fails with ErrNoBody when there is no source", func() {
			_, err := collect(genstream.NewReader(nil))
			Expect(err).To(MatchError(genstream.ErrNoBody))
		})

		It("surfaces a transport failure after delivering earlier lines", func() {
			boom := errors.New("connection reset")
			src := &chunkReader{
				chunks: []string{"{\"type\":\"progress\",\"progress\":5}\n{\"type\":\"prog"},
				err:    boom,
			}

			events, err := collect(genstream.NewReader(src))
			Expect(events).To(HaveLen(1))

			var terr *genstream.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(err).To(MatchError(boom))
		})

		It("stops when a line exceeds the configured limit", func() {
			src := strings.NewReader("{\"type\":\"progress\"}\n" + strings.Repeat("x", 64))
			events, err := collect(genstream.NewReader(src, genstream.WithMaxLineBytes(32), genstream.WithChunkSize(8)))
			Expect(err).To(MatchError(genstream.ErrLineTooLong))
			Expect(events).To(HaveLen(1))
		})

		It("stops and returns the handler error", func() {
			stop := errors.New("stop")
			calls := 0
			r := genstream.NewReader(strings.NewReader("{\"type\":\"progress\"}\n{\"type\":\"progress\"}\n"))
			err := r.Run(context.Background(), func(context.Context, genstream.Event) error {
				calls++
				return stop
			})
			Expect(err).To(MatchError(stop))
			Expect(calls).To(Equal(1))
		})

		It("returns the context error once cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			calls := 0
			r := genstream.NewReader(strings.NewReader("{\"type\":\"progress\"}\n{\"type\":\"progress\"}\n"))
			err := r.Run(ctx, func(context.Context, genstream.Event) error {
				calls++
				cancel()
				return nil
			})
			Expect(err).To(MatchError(context.Canceled))
			Expect(calls).To(Equal(1))
		})

		It("tees every raw byte to the destination", func() {
			payload := "{\"type\":\"progress\"}\nnot json\n{\"type\":\"complete\"}"
			var tee bytes.Buffer

			_, err := collect(genstream.NewReader(strings.NewReader(payload), genstream.WithTee(&tee)))
			Expect(err).NotTo(HaveOccurred())
			Expect(tee.String()).To(Equal(payload))
		})
	})

	Describe("Next", func() {
		It("returns nil, nil after the last event", func() {
			r := genstream.NewReader(strings.NewReader("{\"type\":\"complete\"}\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal(genstream.EventComplete))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})
	})
})
