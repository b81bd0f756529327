package generator

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/inkwell/pkg/genstream"
	"github.com/inkwellhq/inkwell/pkg/logger"
)

// fakeStreamer replays canned deltas.
type fakeStreamer struct {
	deltas []string
	err    error
	prompt string
	system string
}

func (f *fakeStreamer) streamText(_ context.Context, system, prompt string, onDelta func(string) error) error {
	f.system, f.prompt = system, prompt
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return f.err
}

func newFakeModel(s *fakeStreamer) *modelGenerator {
	return &modelGenerator{name: "fake", streamer: s, logger: logger.Nop()}
}

var _ = Describe("model generator", func() {
	var (
		ctx context.Context
		rec *recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = &recorder{}
	})

	Describe("blueprints", func() {
		It("parses a fenced JSON response into blueprint values", func() {
			s := &fakeStreamer{deltas: []string{
				"```json\n{\"headline\": \"Ship faster\", ",
				"\"tagline\": \"Copy that converts\", \"body\": \"Long form\", \"callToAction\": \"Start now\"}\n```",
			}}
			req := Request{Kind: KindBlueprint, SourceText: sourceText}
			Expect(Run(ctx, newFakeModel(s), req, rec)).To(Succeed())

			Expect(s.system).To(Equal(systemPrompt))
			Expect(s.prompt).To(ContainSubstring(sourceText))
			Expect(s.prompt).To(ContainSubstring("- callToAction: callToAction"))

			session, err := replay(rec.events)
			Expect(err).NotTo(HaveOccurred())
			values := decodeStrings(session.Content()[genstream.KeyBlueprintValues])
			Expect(values).To(HaveKeyWithValue("headline", "Ship faster"))
			Expect(values).To(HaveKeyWithValue("callToAction", "Start now"))
		})

		It("labels field slots in the prompt", func() {
			s := &fakeStreamer{deltas: []string{`{"productName": "Inkwell"}`}}
			req := Request{Kind: KindBlueprint, SourceText: sourceText, Categories: sampleCategories()}
			Expect(Run(ctx, newFakeModel(s), req, rec)).To(Succeed())
			Expect(s.prompt).To(ContainSubstring("- productName: Product name"))
		})

		It("fails on a response that is not JSON", func() {
			s := &fakeStreamer{deltas: []string{"Sorry, I cannot help with that."}}
			req := Request{Kind: KindBlueprint, SourceText: sourceText}
			err := Run(ctx, newFakeModel(s), req, rec)
			Expect(err).To(MatchError(ContainSubstring("unusable blueprint")))
			Expect(rec.events[len(rec.events)-1].Type).To(Equal(genstream.EventError))
		})
	})

	Describe("projects", func() {
		It("streams aiContent as rendered HTML", func() {
			s := &fakeStreamer{deltas: []string{"# Spring ", "launch\n\nBuy **now**."}}
			req := Request{Kind: KindProject, ProjectID: "p1", Name: "Spring", Categories: sampleCategories()}
			Expect(Run(ctx, newFakeModel(s), req, rec)).To(Succeed())

			Expect(s.prompt).To(ContainSubstring("Project: Spring"))
			Expect(s.prompt).To(ContainSubstring("- Product name: Inkwell"))

			var data []string
			for _, ev := range rec.events {
				if ev.Type == genstream.EventData {
					Expect(ev.Key).To(Equal(genstream.KeyAIContent))
					data = append(data, string(ev.Value))
				}
			}
			// One send for the finished heading paragraph, none for the tail.
			Expect(data).To(HaveLen(1))
			Expect(data[0]).To(ContainSubstring("Spring launch"))
			Expect(data[0]).NotTo(ContainSubstring("now"))

			session, err := replay(rec.events)
			Expect(err).NotTo(HaveOccurred())
			html, _ := session.ContentString(genstream.KeyAIContent)
			Expect(html).To(ContainSubstring("<h1>Spring launch</h1>"))
			Expect(html).To(ContainSubstring("<strong>now</strong>"))
		})
	})

	It("re-renders aiContent per paragraph rather than per chunk", func() {
		var deltas []string
		for p := range 3 {
			for range 20 {
				deltas = append(deltas, "word ")
			}
			if p < 2 {
				deltas = append(deltas, "\n\n")
			}
		}
		s := &fakeStreamer{deltas: deltas}
		Expect(Run(ctx, newFakeModel(s), Request{Kind: KindProject, ProjectID: "p1"}, rec)).To(Succeed())

		var sent []string
		for _, ev := range rec.events {
			if ev.Type == genstream.EventData && ev.Key == genstream.KeyAIContent {
				sent = append(sent, string(ev.Value))
			}
		}
		Expect(sent).To(HaveLen(2))
		Expect(strings.Count(sent[0], "<p>")).To(Equal(1))
		Expect(strings.Count(sent[1], "<p>")).To(Equal(2))

		session, err := replay(rec.events)
		Expect(err).NotTo(HaveOccurred())
		html, _ := session.ContentString(genstream.KeyAIContent)
		Expect(strings.Count(html, "<p>")).To(Equal(3))
	})

	It("caps streaming progress below completion", func() {
		deltas := make([]string, 40)
		for i := range deltas {
			deltas[i] = "word "
		}
		s := &fakeStreamer{deltas: deltas}
		req := Request{Kind: KindProject, ProjectID: "p1"}
		Expect(Run(ctx, newFakeModel(s), req, rec)).To(Succeed())

		progress := rec.progress()
		Expect(progress[len(progress)-1]).To(Equal(100))
		Expect(progress[len(progress)-2]).To(Equal(90))
	})

	It("fails on an empty response", func() {
		s := &fakeStreamer{deltas: []string{"  "}}
		err := Run(ctx, newFakeModel(s), Request{Kind: KindProject, ProjectID: "p1"}, rec)
		Expect(err).To(MatchError(ContainSubstring("no content")))
	})

	It("reports streamer failures", func() {
		s := &fakeStreamer{deltas: []string{"partial"}, err: errors.New("connection reset")}
		err := Run(ctx, newFakeModel(s), Request{Kind: KindProject, ProjectID: "p1"}, rec)
		Expect(err).To(MatchError("connection reset"))
		Expect(rec.events[len(rec.events)-1].Message).To(Equal("connection reset"))
	})
})

var _ = Describe("parseSlotValues", func() {
	It("keeps strings and encodes other values", func() {
		v, err := parseSlotValues(`Here you go: {"a": "x", "b": 3, "c": null}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(map[string]string{"a": "x", "b": "3"}))
	})
})
