package catalog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/inkwell/pkg/catalog"
)

func sampleTree() []catalog.Category {
	return []catalog.Category{
		{
			ID:   "brand",
			Name: "Brand",
			Fields: []catalog.Field{
				{ID: "brand-name", Label: "Brand name", Kind: catalog.FieldText},
			},
			Children: []catalog.Category{
				{
					ID:   "voice",
					Name: "Voice",
					Fields: []catalog.Field{
						{ID: "tone", Label: "Tone", Kind: catalog.FieldSelect, Options: []string{"playful", "formal"}},
					},
					Children: []catalog.Category{
						{
							ID:     "examples",
							Name:   "Examples",
							Fields: []catalog.Field{{ID: "sample", Label: "Sample copy", Kind: catalog.FieldTextarea}},
						},
					},
				},
			},
		},
		{
			ID:     "offer",
			Name:   "Offer",
			Fields: []catalog.Field{{ID: "discount", Label: "Discount", Kind: catalog.FieldText}},
		},
	}
}

var _ = Describe("category tree", func() {
	It("accepts a three level tree", func() {
		Expect(catalog.ValidateCategories(sampleTree())).To(Succeed())
	})

	It("rejects a fourth level", func() {
		tree := sampleTree()
		tree[0].Children[0].Children[0].Children = []catalog.Category{{ID: "deep", Name: "Deep"}}

		Expect(catalog.ValidateCategories(tree)).To(MatchError(catalog.ErrInvalidTree))
	})

	It("rejects duplicate field ids across branches", func() {
		tree := sampleTree()
		tree[1].Fields = append(tree[1].Fields, catalog.Field{ID: "tone", Label: "Tone again"})

		err := catalog.ValidateCategories(tree)
		Expect(err).To(MatchError(ContainSubstring(`duplicate field id "tone"`)))
	})

	It("rejects select values that are not options", func() {
		tree := sampleTree()
		tree[0].Children[0].Fields[0].Value = "grumpy"

		Expect(catalog.ValidateCategories(tree)).To(MatchError(catalog.ErrInvalidTree))
	})

	It("rejects unnamed categories and unknown kinds", func() {
		tree := sampleTree()
		tree[1].Name = ""
		Expect(catalog.ValidateCategories(tree)).To(HaveOccurred())

		tree = sampleTree()
		tree[1].Fields[0].Kind = "slider"
		Expect(catalog.ValidateCategories(tree)).To(HaveOccurred())
	})

	It("walks parents before children with depths", func() {
		var visited []string
		var depths []int
		Expect(catalog.WalkCategories(sampleTree(), func(c *catalog.Category, depth int) error {
			visited = append(visited, c.ID)
			depths = append(depths, depth)
			return nil
		})).To(Succeed())

		Expect(visited).To(Equal([]string{"brand", "voice", "examples", "offer"}))
		Expect(depths).To(Equal([]int{1, 2, 3, 1}))
	})

	It("lists fields depth first", func() {
		ids := []string{}
		for _, f := range catalog.Fields(sampleTree()) {
			ids = append(ids, f.ID)
		}
		Expect(ids).To(Equal([]string{"brand-name", "tone", "sample", "discount"}))
	})

	It("sets values in place and reports unknown ids", func() {
		tree := sampleTree()
		unknown := catalog.SetFieldValues(tree, map[string]string{
			"sample":  "Hello there",
			"tone":    "formal",
			"missing": "x",
		})
		Expect(unknown).To(Equal([]string{"missing"}))

		f, ok := catalog.FindField(tree, "sample")
		Expect(ok).To(BeTrue())
		Expect(f.Value).To(Equal("Hello there"))
		Expect(catalog.FieldValues(tree)).To(Equal(map[string]string{"sample": "Hello there", "tone": "formal"}))
	})

	It("deep copies trees", func() {
		tree := sampleTree()
		clone := catalog.CloneCategories(tree)
		clone[0].Children[0].Fields[0].Options[0] = "changed"
		clone[0].Name = "Changed"

		Expect(tree[0].Children[0].Fields[0].Options[0]).To(Equal("playful"))
		Expect(tree[0].Name).To(Equal("Brand"))
	})
})
