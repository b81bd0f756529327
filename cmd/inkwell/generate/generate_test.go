package generatecmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/api"
	generatecmder "github.com/inkwellhq/inkwell/cmd/inkwell/generate"
	"github.com/inkwellhq/inkwell/pkg/activity"
	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/dotdir"
	"github.com/inkwellhq/inkwell/pkg/generator"
	"github.com/inkwellhq/inkwell/pkg/genstream"
	"github.com/inkwellhq/inkwell/pkg/logger"
	"github.com/inkwellhq/inkwell/pkg/storage/inmemory"
)

type jsonResult struct {
	Trigger  string                     `json:"trigger"`
	EntityID string                     `json:"entityId"`
	Content  map[string]json.RawMessage `json:"content"`
}

var _ = Describe("Generate commands", func() {
	var (
		baseURL   string
		driver    *inmemory.Driver
		user      *catalog.User
		configDir string
		server    *api.Server
		pool      *activity.Pool
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()

		var err error
		pool, err = activity.NewPool(&activity.Config{Store: driver})
		Expect(err).NotTo(HaveOccurred())

		user = &catalog.User{
			ID: "u1", Email: "writer@example.com", Role: auth.RoleUser,
			Token: catalog.NewToken(), CreatedAt: time.Now(),
		}
		Expect(driver.CreateUser(context.Background(), user)).To(Succeed())

		server, err = api.NewServer(api.Config{}, driver, generator.NewTemplate(), pool, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() { _ = server.RunWithListener(ln) }()
		baseURL = "http://" + ln.Addr().String()

		configDir = GinkgoT().TempDir()
	})

	AfterEach(func() {
		_ = server.Shutdown()
		pool.Close()
	})

	execute := func(stdin string, args ...string) (string, error) {
		root := &cobra.Command{Use: "inkwell", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().Bool("debug", false, "")
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(generatecmder.NewGenerateCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetIn(strings.NewReader(stdin))
		root.SetArgs(append(args, "--config-dir", configDir))
		err := root.Execute()
		return out.String(), err
	}

	clientArgs := func(args ...string) []string {
		return append(args, "--api-target", baseURL, "--token", user.Token)
	}

	// lastJSON decodes the JSON document printed after the progress lines.
	lastJSON := func(out string) jsonResult {
		start := strings.Index(out, "{")
		Expect(start).To(BeNumerically(">=", 0), out)
		var res jsonResult
		Expect(json.Unmarshal([]byte(out[start:]), &res)).To(Succeed())
		return res
	}

	Describe("blueprint", func() {
		It("creates a blueprint from source copy", func() {
			out, err := execute("", clientArgs("generate", "blueprint",
				"--name", "Launch", "--source", "Meet the fastest way to write launch copy.", "--json")...)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("done"))

			res := lastJSON(out)
			Expect(res.Trigger).To(Equal("blueprint"))
			Expect(res.EntityID).NotTo(BeEmpty())
			Expect(res.Content).To(HaveKey(genstream.KeyBlueprintValues))

			b, err := driver.GetBlueprint(context.Background(), res.EntityID)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Name).To(Equal("Launch"))
			Expect(b.OwnerID).To(Equal(user.ID))
		})

		It("reads source copy from stdin", func() {
			out, err := execute("Sound like you, only faster.", clientArgs("generate", "blueprint", "--source-file", "-", "--json")...)
			Expect(err).NotTo(HaveOccurred())
			Expect(lastJSON(out).Content).To(HaveKey(genstream.KeyBlueprintValues))
		})

		It("reads source copy from a file and writes a transcript", func() {
			src := filepath.Join(configDir, "notes.md")
			Expect(os.WriteFile(src, []byte("Launch day copy in minutes."), 0o600)).To(Succeed())
			transcript := filepath.Join(configDir, "stream.ndjson")

			_, err := execute("", clientArgs("generate", "blueprint", "-f", src, "--transcript", transcript, "--json")...)
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(transcript)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"type":"complete"`))
		})

		It("requires source copy for a new blueprint", func() {
			_, err := execute("", clientArgs("generate", "blueprint")...)
			Expect(err).To(MatchError(ContainSubstring("source copy is required")))
		})

		It("requires a token", func() {
			_, err := execute("", "generate", "blueprint", "--source", "x", "--api-target", baseURL)
			Expect(err).To(MatchError(ContainSubstring("no API token")))
		})

		It("reports a rejected token", func() {
			_, err := execute("", "generate", "blueprint", "--source", "x", "--api-target", baseURL, "--token", "iw_wrong")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("401"))
		})
	})

	Describe("project", func() {
		It("fills fields and writes copy", func() {
			ctx := context.Background()
			bp := &catalog.Blueprint{
				ID: "bp1", OwnerID: user.ID, Name: "Launch",
				Categories: []catalog.Category{{
					ID: "product", Name: "Product",
					Fields: []catalog.Field{
						{ID: "productName", Label: "Product name", Kind: catalog.FieldText},
						{ID: "tone", Label: "Tone", Kind: catalog.FieldSelect, Options: []string{"friendly", "formal"}},
					},
				}},
				CreatedAt: time.Now(), UpdatedAt: time.Now(),
			}
			Expect(driver.PutBlueprint(ctx, bp)).To(Succeed())
			project := catalog.NewProjectFromBlueprint(bp, user.ID, "", time.Now())
			Expect(driver.PutProject(ctx, project)).To(Succeed())

			out, err := execute("", clientArgs("generate", "project", project.ID,
				"--set", "productName=Inkwell Pro", "--set", "tone=formal", "--json")...)
			Expect(err).NotTo(HaveOccurred())

			res := lastJSON(out)
			Expect(res.Trigger).To(Equal("project"))
			Expect(res.EntityID).To(Equal(project.ID))
			Expect(res.Content).To(HaveKey(genstream.KeyAIContent))

			var html string
			Expect(json.Unmarshal(res.Content[genstream.KeyAIContent], &html)).To(Succeed())
			Expect(html).To(ContainSubstring("Inkwell Pro"))
		})

		It("reports a missing project", func() {
			_, err := execute("", clientArgs("generate", "project", "missing")...)
			Expect(err).To(MatchError(ContainSubstring("404")))
		})
	})

	Describe("show", func() {
		It("fails before any generation", func() {
			_, err := execute("", "generate", "show")
			Expect(err).To(MatchError(ContainSubstring("no generation saved yet")))
		})

		It("prints the saved result", func() {
			Expect(dotdir.NewManager().SaveLastGeneration(&dotdir.LastGeneration{
				Trigger:  "project",
				EntityID: "p1",
				Content: map[string]json.RawMessage{
					genstream.KeyFieldValue: json.RawMessage(`{"tone":"formal"}`),
					genstream.KeyAIContent:  json.RawMessage(`"<h1>Hello</h1>"`),
				},
				At: time.Now(),
			}, configDir)).To(Succeed())

			out, err := execute("", "generate", "show", "--json")
			Expect(err).NotTo(HaveOccurred())
			res := lastJSON(out)
			Expect(res.EntityID).To(Equal("p1"))
			Expect(res.Content).To(HaveKey(genstream.KeyFieldValue))

			out, err = execute("", "generate", "show")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Hello"))
			Expect(out).To(ContainSubstring("formal"))
		})

		It("is refreshed by a successful generation", func() {
			_, err := execute("", clientArgs("generate", "blueprint", "--source", "Ship it.", "--json")...)
			Expect(err).NotTo(HaveOccurred())

			last, err := dotdir.NewManager().LoadLastGeneration(configDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(last).NotTo(BeNil())
			Expect(last.Trigger).To(Equal("blueprint"))
		})
	})
})
