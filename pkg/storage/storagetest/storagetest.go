// Package storagetest holds the behavior every storage.Driver must share,
// written as ginkgo specs that driver test suites register.
package storagetest

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// base is a fixed clock so timestamps compare exactly after a round trip.
var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// DescribeDriver registers the shared driver specs. newDriver is called once
// per spec and must return an empty driver.
func DescribeDriver(newDriver func() storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
		DeferCleanup(driver.Close)
	})

	Describe("users", func() {
		It("creates, fetches and lists users", func() {
			alice := &catalog.User{ID: "u-alice", Email: "alice@example.com", Name: "Alice", Role: auth.RoleAdmin, Token: "tok-a", CreatedAt: base}
			bob := &catalog.User{ID: "u-bob", Email: "bob@example.com", Name: "Bob", Role: auth.RoleUser, Token: "tok-b", CreatedAt: base.Add(time.Minute)}
			Expect(driver.CreateUser(ctx, bob)).To(Succeed())
			Expect(driver.CreateUser(ctx, alice)).To(Succeed())

			got, err := driver.GetUser(ctx, "u-alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("alice@example.com"))
			Expect(got.Role).To(Equal(auth.RoleAdmin))
			Expect(got.CreatedAt.Equal(base)).To(BeTrue())

			byToken, err := driver.GetUserByToken(ctx, "tok-b")
			Expect(err).NotTo(HaveOccurred())
			Expect(byToken.ID).To(Equal("u-bob"))

			users, err := driver.ListUsers(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(2))
			Expect(users[0].ID).To(Equal("u-alice"))
		})

		It("rejects a duplicate email", func() {
			Expect(driver.CreateUser(ctx, &catalog.User{ID: "u1", Email: "a@example.com", Role: auth.RoleUser, Token: "t1", CreatedAt: base})).To(Succeed())
			err := driver.CreateUser(ctx, &catalog.User{ID: "u2", Email: "a@example.com", Role: auth.RoleUser, Token: "t2", CreatedAt: base})
			Expect(err).To(MatchError(storage.ErrConflict))
		})

		It("reports unknown users and tokens as not found", func() {
			_, err := driver.GetUser(ctx, "missing")
			Expect(err).To(MatchError(storage.ErrNotFound))

			_, err = driver.GetUserByToken(ctx, "missing")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("blueprints", func() {
		newBlueprint := func(id, owner string, offset time.Duration) *catalog.Blueprint {
			return &catalog.Blueprint{
				ID:         id,
				OwnerID:    owner,
				Name:       "Blueprint " + id,
				SourceText: "Spring sale on all shoes",
				Values:     map[string]json.RawMessage{"headline": json.RawMessage(`"Spring into savings"`)},
				Categories: []catalog.Category{{
					ID:     "c1",
					Name:   "Offer",
					Fields: []catalog.Field{{ID: "discount", Label: "Discount", Kind: catalog.FieldText, Value: "20%"}},
				}},
				CreatedAt: base.Add(offset),
				UpdatedAt: base.Add(offset),
			}
		}

		It("round trips nested values", func() {
			Expect(driver.PutBlueprint(ctx, newBlueprint("b1", "u1", 0))).To(Succeed())

			got, err := driver.GetBlueprint(ctx, "b1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Values["headline"]).To(MatchJSON(`"Spring into savings"`))
			Expect(got.Categories).To(HaveLen(1))
			Expect(got.Categories[0].Fields[0].Value).To(Equal("20%"))
			Expect(got.UpdatedAt.Equal(base)).To(BeTrue())
		})

		It("replaces on put", func() {
			b := newBlueprint("b1", "u1", 0)
			Expect(driver.PutBlueprint(ctx, b)).To(Succeed())

			b.Name = "Renamed"
			b.UpdatedAt = base.Add(time.Hour)
			Expect(driver.PutBlueprint(ctx, b)).To(Succeed())

			got, err := driver.GetBlueprint(ctx, "b1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("Renamed"))

			all, err := driver.ListBlueprints(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("lists by owner oldest first", func() {
			Expect(driver.PutBlueprint(ctx, newBlueprint("b2", "u1", time.Minute))).To(Succeed())
			Expect(driver.PutBlueprint(ctx, newBlueprint("b1", "u1", 0))).To(Succeed())
			Expect(driver.PutBlueprint(ctx, newBlueprint("b3", "u2", 0))).To(Succeed())

			mine, err := driver.ListBlueprints(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(2))
			Expect(mine[0].ID).To(Equal("b1"))
			Expect(mine[1].ID).To(Equal("b2"))

			all, err := driver.ListBlueprints(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})

		It("deletes and reports missing blueprints", func() {
			Expect(driver.PutBlueprint(ctx, newBlueprint("b1", "u1", 0))).To(Succeed())
			Expect(driver.DeleteBlueprint(ctx, "b1")).To(Succeed())

			_, err := driver.GetBlueprint(ctx, "b1")
			Expect(err).To(MatchError(storage.ErrNotFound))
			Expect(driver.DeleteBlueprint(ctx, "b1")).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("projects", func() {
		newProject := func(id, owner string) *catalog.Project {
			return &catalog.Project{
				ID:          id,
				OwnerID:     owner,
				BlueprintID: "b1",
				Name:        "Project " + id,
				Categories:  []catalog.Category{{ID: "c1", Name: "Brand", Children: []catalog.Category{{ID: "c2", Name: "Voice"}}}},
				Content:     map[string]json.RawMessage{"aiContent": json.RawMessage(`"<p>Hello</p>"`)},
				CreatedAt:   base,
				UpdatedAt:   base,
			}
		}

		It("round trips and lists projects", func() {
			Expect(driver.PutProject(ctx, newProject("p1", "u1"))).To(Succeed())
			Expect(driver.PutProject(ctx, newProject("p2", "u2"))).To(Succeed())

			got, err := driver.GetProject(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.BlueprintID).To(Equal("b1"))
			Expect(got.Categories[0].Children[0].Name).To(Equal("Voice"))
			Expect(got.Content["aiContent"]).To(MatchJSON(`"<p>Hello</p>"`))

			mine, err := driver.ListProjects(ctx, "u2")
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(1))
			Expect(mine[0].ID).To(Equal("p2"))
		})

		It("deletes projects", func() {
			Expect(driver.PutProject(ctx, newProject("p1", "u1"))).To(Succeed())
			Expect(driver.DeleteProject(ctx, "p1")).To(Succeed())
			_, err := driver.GetProject(ctx, "p1")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("activity", func() {
		It("lists newest first with filters and limits", func() {
			for i, user := range []string{"u1", "u2", "u1", "u1"} {
				entry := catalog.NewActivityLog(user, catalog.ActionCreate, catalog.EntityProject, "p", "", base.Add(time.Duration(i)*time.Minute))
				Expect(driver.AppendActivity(ctx, entry)).To(Succeed())
			}

			all, err := driver.ListActivity(ctx, storage.ActivityQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(4))
			Expect(all[0].CreatedAt.Equal(base.Add(3 * time.Minute))).To(BeTrue())

			mine, err := driver.ListActivity(ctx, storage.ActivityQuery{UserID: "u1", Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(2))
			Expect(mine[0].UserID).To(Equal("u1"))
			Expect(mine[1].CreatedAt.Equal(base.Add(2 * time.Minute))).To(BeTrue())
		})
	})
}
