package genstream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/inkwell/pkg/genstream"
)

func asStrings(lines [][]byte) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out
}

var _ = Describe("Framer", func() {
	var f *genstream.Framer

	BeforeEach(func() {
		f = genstream.NewFramer(0)
	})

	It("returns nothing for a chunk without a newline", func() {
		lines, err := f.Push([]byte(`{"type":"prog`))
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(BeEmpty())
		Expect(f.Buffered()).To(Equal(13))
	})

	It("returns every complete line in a chunk", func() {
		lines, err := f.Push([]byte("{\"a\":1}\n{\"b\":2}\n{\"c\":3}\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(asStrings(lines)).To(Equal([]string{`{"a":1}`, `{"b":2}`, `{"c":3}`}))
		Expect(f.Buffered()).To(BeZero())
	})

	It("joins a line split across three chunks", func() {
		l1, _ := f.Push([]byte(`{"type":`))
		l2, _ := f.Push([]byte(`"progress",`))
		l3, err := f.Push([]byte("\"progress\":5}\n"))
		Expect(err).NotTo(HaveOccurred())

		Expect(l1).To(BeEmpty())
		Expect(l2).To(BeEmpty())
		Expect(asStrings(l3)).To(Equal([]string{`{"type":"progress","progress":5}`}))
	})

	It("keeps the tail after the last newline", func() {
		lines, err := f.Push([]byte("{\"a\":1}\n{\"b\""))
		Expect(err).NotTo(HaveOccurred())
		Expect(asStrings(lines)).To(Equal([]string{`{"a":1}`}))

		lines, err = f.Push([]byte(":2}\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(asStrings(lines)).To(Equal([]string{`{"b":2}`}))
	})

	It("skips blank lines and trims whitespace including carriage returns", func() {
		lines, err := f.Push([]byte("\n  \n  {\"a\":1}  \r\n\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(asStrings(lines)).To(Equal([]string{`{"a":1}`}))
	})

	It("preserves multi-byte characters split across chunks", func() {
		full := []byte("{\"m\":\"héllo ✓\"}\n")
		// split inside the two-byte é and inside the three-byte check mark
		cut1 := 8
		cut2 := len(full) - 4

		var got [][]byte
		for _, part := range [][]byte{full[:cut1], full[cut1:cut2], full[cut2:]} {
			lines, err := f.Push(part)
			Expect(err).NotTo(HaveOccurred())
			got = append(got, lines...)
		}

		Expect(asStrings(got)).To(Equal([]string{`{"m":"héllo ✓"}`}))
	})

	It("returns lines that do not alias the internal buffer", func() {
		lines, err := f.Push([]byte("{\"a\":1}\n{\"b\":2"))
		Expect(err).NotTo(HaveOccurred())
		_, err = f.Push([]byte("XXXXXXXXXXXXXXXX}\n"))
		Expect(err).NotTo(HaveOccurred())

		Expect(string(lines[0])).To(Equal(`{"a":1}`))
	})

	Describe("Flush", func() {
		It("returns the unterminated remainder", func() {
			_, _ = f.Push([]byte(`{"type":"complete"}`))
			Expect(string(f.Flush())).To(Equal(`{"type":"complete"}`))
			Expect(f.Buffered()).To(BeZero())
		})

		It("returns nil for an empty or whitespace remainder", func() {
			Expect(f.Flush()).To(BeNil())
			_, _ = f.Push([]byte("{\"a\":1}\n  "))
			Expect(f.Flush()).To(BeNil())
		})
	})

	Describe("limits", func() {
		It("fails when an unterminated line grows past the limit", func() {
			small := genstream.NewFramer(8)
			_, err := small.Push([]byte("0123"))
			Expect(err).NotTo(HaveOccurred())

			_, err = small.Push([]byte("456789"))
			Expect(err).To(MatchError(genstream.ErrLineTooLong))
		})

		It("returns lines completed before the overflow", func() {
			small := genstream.NewFramer(8)
			lines, err := small.Push([]byte("{\"a\":1}\n0123456789"))
			Expect(err).To(MatchError(genstream.ErrLineTooLong))
			Expect(asStrings(lines)).To(Equal([]string{`{"a":1}`}))
		})

		It("fails on a complete line longer than the limit", func() {
			small := genstream.NewFramer(4)
			_, err := small.Push([]byte("0123456789\n"))
			Expect(err).To(MatchError(genstream.ErrLineTooLong))
		})
	})
})
