package dump_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/dump"
	"github.com/inkwellhq/inkwell/pkg/storage"
	"github.com/inkwellhq/inkwell/pkg/storage/inmemory"
)

var _ = Describe("Dump", func() {
	var (
		ctx    context.Context
		source *inmemory.Driver
		now    time.Time
	)

	seed := func(d *inmemory.Driver) {
		for _, u := range []*catalog.User{
			{ID: "u1", Email: "one@example.com", Role: auth.RoleUser, Token: "iw_one", CreatedAt: now},
			{ID: "u2", Email: "two@example.com", Role: auth.RoleUser, Token: "iw_two", CreatedAt: now},
		} {
			Expect(d.CreateUser(ctx, u)).To(Succeed())
		}
		bp := &catalog.Blueprint{
			ID: "bp1", OwnerID: "u1", Name: "Launch",
			Values:    map[string]json.RawMessage{"headline": json.RawMessage(`"Ship it"`)},
			CreatedAt: now, UpdatedAt: now,
		}
		Expect(d.PutBlueprint(ctx, bp)).To(Succeed())
		Expect(d.PutBlueprint(ctx, &catalog.Blueprint{ID: "bp2", OwnerID: "u2", Name: "Other", CreatedAt: now, UpdatedAt: now})).To(Succeed())
		Expect(d.PutProject(ctx, catalog.NewProjectFromBlueprint(bp, "u1", "Spring", now))).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		source = inmemory.NewDriver()
		seed(source)
	})

	Describe("Export", func() {
		It("includes every entity", func() {
			doc, err := dump.Export(ctx, source, "", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Version).To(Equal(dump.FormatVersion))
			Expect(doc.Users).To(HaveLen(2))
			Expect(doc.Blueprints).To(HaveLen(2))
			Expect(doc.Projects).To(HaveLen(1))
		})

		It("limits blueprints and projects to an owner", func() {
			doc, err := dump.Export(ctx, source, "u2", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Users).To(HaveLen(2))
			Expect(doc.Blueprints).To(HaveLen(1))
			Expect(doc.Blueprints[0].ID).To(Equal("bp2"))
			Expect(doc.Projects).To(BeEmpty())
		})
	})

	Describe("Read", func() {
		It("round trips a written document", func() {
			doc, err := dump.Export(ctx, source, "", now)
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			Expect(dump.Write(&buf, doc)).To(Succeed())
			back, err := dump.Read(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(back.Blueprints[0].Values).To(HaveKey("headline"))
		})

		It("rejects an unknown version", func() {
			_, err := dump.Read(strings.NewReader(`{"version": 7}`))
			Expect(err).To(MatchError(ContainSubstring("unsupported dump version 7")))
		})

		It("rejects malformed JSON", func() {
			_, err := dump.Read(strings.NewReader(`{"version":`))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Import", func() {
		It("restores into empty storage and records activity", func() {
			doc, err := dump.Export(ctx, source, "", now)
			Expect(err).NotTo(HaveOccurred())

			target := inmemory.NewDriver()
			im := &dump.Importer{Driver: target, Now: func() time.Time { return now }}
			stats, err := im.Import(ctx, doc, "backup.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(Equal(dump.Stats{Users: 2, Blueprints: 2, Projects: 1}))

			b, err := target.GetBlueprint(ctx, "bp1")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Name).To(Equal("Launch"))

			logs, err := target.ListActivity(ctx, storage.ActivityQuery{UserID: "u1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(HaveLen(2))
			for _, l := range logs {
				Expect(l.Action).To(Equal(catalog.ActionImport))
				Expect(l.Detail).To(Equal("backup.json"))
			}
		})

		It("skips existing users and replaces blueprints", func() {
			doc, err := dump.Export(ctx, source, "", now)
			Expect(err).NotTo(HaveOccurred())
			doc.Blueprints[0].Name = "Renamed"

			stats, err := (&dump.Importer{Driver: source}).Import(ctx, doc, "again.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Users).To(BeZero())
			Expect(stats.Skipped).To(Equal(2))
			Expect(stats.Blueprints).To(Equal(2))

			b, err := source.GetBlueprint(ctx, doc.Blueprints[0].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Name).To(Equal("Renamed"))
		})

		It("skips entities whose owner is unknown", func() {
			doc := &dump.Document{
				Version:    dump.FormatVersion,
				Blueprints: []*catalog.Blueprint{{ID: "orphan", OwnerID: "ghost", Name: "Orphan"}},
			}
			target := inmemory.NewDriver()
			stats, err := (&dump.Importer{Driver: target}).Import(ctx, doc, "orphans.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Skipped).To(Equal(1))

			_, err = target.GetBlueprint(ctx, "orphan")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("Expand and ImportFiles", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			doc, err := dump.Export(ctx, source, "u1", now)
			Expect(err).NotTo(HaveOccurred())

			Expect(os.MkdirAll(filepath.Join(dir, "2026", "03"), 0o755)).To(Succeed())
			for _, name := range []string{"a.json", filepath.Join("2026", "03", "b.json")} {
				f, err := os.Create(filepath.Join(dir, name))
				Expect(err).NotTo(HaveOccurred())
				Expect(dump.Write(f, doc)).To(Succeed())
				Expect(f.Close()).To(Succeed())
			}
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o600)).To(Succeed())
		})

		It("matches recursive patterns without duplicates", func() {
			files, err := dump.Expand([]string{
				filepath.Join(dir, "**", "*.json"),
				filepath.Join(dir, "a.json"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(2))
		})

		It("fails when a pattern matches nothing", func() {
			_, err := dump.Expand([]string{filepath.Join(dir, "*.csv")})
			Expect(err).To(MatchError(ContainSubstring("no files match")))
		})

		It("imports every matched file", func() {
			files, err := dump.Expand([]string{filepath.Join(dir, "**", "*.json")})
			Expect(err).NotTo(HaveOccurred())

			target := inmemory.NewDriver()
			stats, err := (&dump.Importer{Driver: target}).ImportFiles(ctx, files)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Files).To(Equal(2))
			Expect(stats.Users).To(Equal(2))
			Expect(stats.Blueprints).To(Equal(2))

			list, err := target.ListBlueprints(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})
	})
})
