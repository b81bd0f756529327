package generator

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/inkwell/pkg/genstream"
)

const sourceText = "write better launch emails in minutes. Inkwell turns rough notes into polished copy! Try it free today."

var _ = Describe("Template", func() {
	var (
		ctx context.Context
		rec *recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = &recorder{}
	})

	Describe("blueprint generation", func() {
		It("fills the default slots when the tree has no fields", func() {
			req := Request{Kind: KindBlueprint, SourceText: sourceText}
			Expect(Run(ctx, NewTemplate(), req, rec)).To(Succeed())

			session, err := replay(rec.events)
			Expect(err).NotTo(HaveOccurred())

			values := decodeStrings(session.Content()[genstream.KeyBlueprintValues])
			Expect(values).To(HaveLen(len(DefaultBlueprintSlots)))
			Expect(values["headline"]).To(Equal("Write better launch emails in minutes"))
			Expect(values["tagline"]).To(Equal("Inkwell turns rough notes into polished copy!"))
			Expect(values["body"]).To(Equal("Try it free today."))
			Expect(values["callToAction"]).To(Equal("write better launch emails in minutes."))
		})

		It("uses field IDs as slots when the tree has fields", func() {
			req := Request{Kind: KindBlueprint, SourceText: sourceText, Categories: sampleCategories()}
			Expect(Run(ctx, NewTemplate(), req, rec)).To(Succeed())

			session, err := replay(rec.events)
			Expect(err).NotTo(HaveOccurred())
			values := decodeStrings(session.Content()[genstream.KeyBlueprintValues])
			Expect(values).To(HaveKey("productName"))
			Expect(values).To(HaveKey("tone"))
			Expect(values).To(HaveKey("persona"))
		})

		It("emits non-decreasing progress and ends with complete", func() {
			req := Request{Kind: KindBlueprint, SourceText: sourceText}
			Expect(Run(ctx, NewTemplate(), req, rec)).To(Succeed())

			progress := rec.progress()
			for i := 1; i < len(progress); i++ {
				Expect(progress[i]).To(BeNumerically(">=", progress[i-1]))
			}
			Expect(rec.events[len(rec.events)-1].Type).To(Equal(genstream.EventComplete))
			Expect(rec.types()).To(ContainElement(genstream.EventData))
		})

		It("is deterministic", func() {
			req := Request{Kind: KindBlueprint, SourceText: sourceText}
			other := &recorder{}
			Expect(Run(ctx, NewTemplate(), req, rec)).To(Succeed())
			Expect(Run(ctx, NewTemplate(), req, other)).To(Succeed())
			Expect(other.events).To(Equal(rec.events))
		})
	})

	Describe("project generation", func() {
		It("keeps provided values and suggests the rest", func() {
			req := Request{
				Kind:            KindProject,
				ProjectID:       "p1",
				Name:            "Spring launch",
				Categories:      sampleCategories(),
				FieldValues:     map[string]string{"productName": "Inkwell Pro"},
				BlueprintValues: map[string]json.RawMessage{"persona": json.RawMessage(`"busy founders"`)},
			}
			Expect(Run(ctx, NewTemplate(), req, rec)).To(Succeed())

			session, err := replay(rec.events)
			Expect(err).NotTo(HaveOccurred())

			fields := decodeStrings(session.Content()[genstream.KeyFieldValue])
			Expect(fields).To(Equal(map[string]string{
				"productName": "Inkwell Pro",
				"tone":        "friendly",
				"persona":     "busy founders",
			}))

			html, ok := session.ContentString(genstream.KeyAIContent)
			Expect(ok).To(BeTrue())
			Expect(html).To(ContainSubstring("<h1>Spring launch</h1>"))
			Expect(html).To(ContainSubstring("<h3>Audience</h3>"))
			Expect(html).To(ContainSubstring("<strong>Product name:</strong> Inkwell Pro"))
		})

		It("decodes blueprint slots instead of trimming quotes", func() {
			slots := map[string]json.RawMessage{
				"persona": json.RawMessage(`"say \"hi\"\nto \u00e9lan"`),
				"tone":    json.RawMessage(`{"pick":"formal"}`),
			}
			req := Request{
				Kind:            KindProject,
				ProjectID:       "p1",
				Categories:      sampleCategories(),
				BlueprintValues: slots,
			}
			Expect(Run(ctx, NewTemplate(), req, rec)).To(Succeed())

			session, err := replay(rec.events)
			Expect(err).NotTo(HaveOccurred())
			fields := decodeStrings(session.Content()[genstream.KeyFieldValue])
			Expect(fields["persona"]).To(Equal("say \"hi\"\nto élan"))
			// Object slots are not text, so the select falls back to its first option.
			Expect(fields["tone"]).To(Equal("friendly"))
		})

		It("keeps numeric and boolean slots literal", func() {
			Expect(slotText(json.RawMessage(`42`))).To(Equal("42"))
			Expect(slotText(json.RawMessage(` true `))).To(Equal("true"))
			Expect(slotText(json.RawMessage(`null`))).To(Equal(""))
			Expect(slotText(json.RawMessage(`[1,2]`))).To(Equal(""))
		})

		It("composes copy for a project without fields", func() {
			req := Request{Kind: KindProject, ProjectID: "p1"}
			Expect(Run(ctx, NewTemplate(), req, rec)).To(Succeed())

			session, err := replay(rec.events)
			Expect(err).NotTo(HaveOccurred())
			html, _ := session.ContentString(genstream.KeyAIContent)
			Expect(html).To(ContainSubstring("Untitled project"))
		})
	})

	It("reports a cancelled context as an error event", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		req := Request{Kind: KindBlueprint, SourceText: sourceText}
		err := Run(cctx, NewTemplate(), req, rec)
		Expect(err).To(MatchError(context.Canceled))

		last := rec.events[len(rec.events)-1]
		Expect(last.Type).To(Equal(genstream.EventError))
		Expect(last.Message).To(ContainSubstring("canceled"))
	})
})

var _ = Describe("text helpers", func() {
	It("splits sentences on terminal punctuation", func() {
		Expect(splitSentences("One. Two! Three? Four")).To(Equal([]string{"One.", "Two!", "Three?", "Four"}))
		Expect(splitSentences("no punctuation")).To(Equal([]string{"no punctuation"}))
	})

	It("builds short capitalized headlines", func() {
		Expect(headline("one two three four five six seven eight nine ten.")).To(Equal("One two three four five six seven eight"))
		Expect(headline("hello world.")).To(Equal("Hello world"))
		Expect(headline("")).To(Equal(""))
	})
})
