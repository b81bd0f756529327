package admincmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/api"
	admincmder "github.com/inkwellhq/inkwell/cmd/inkwell/admin"
	"github.com/inkwellhq/inkwell/pkg/activity"
	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/generator"
	"github.com/inkwellhq/inkwell/pkg/logger"
	"github.com/inkwellhq/inkwell/pkg/storage/inmemory"
)

var _ = Describe("Admin commands", func() {
	var (
		baseURL string
		admin   *catalog.User
		server  *api.Server
		pool    *activity.Pool
	)

	BeforeEach(func() {
		driver := inmemory.NewDriver()

		var err error
		pool, err = activity.NewPool(&activity.Config{Store: driver})
		Expect(err).NotTo(HaveOccurred())

		admin, err = api.Bootstrap(context.Background(), driver, "admin@example.com")
		Expect(err).NotTo(HaveOccurred())

		server, err = api.NewServer(api.Config{}, driver, generator.NewTemplate(), pool, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() { _ = server.RunWithListener(ln) }()
		baseURL = "http://" + ln.Addr().String()
	})

	AfterEach(func() {
		_ = server.Shutdown()
		pool.Close()
	})

	execute := func(token string, args ...string) (string, error) {
		root := &cobra.Command{Use: "inkwell", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().Bool("debug", false, "")
		root.PersistentFlags().String("config-dir", GinkgoT().TempDir(), "")
		root.AddCommand(admincmder.NewAdminCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs(append(args, "--api-target", baseURL, "--token", token))
		err := root.Execute()
		return out.String(), err
	}

	It("creates and lists users", func() {
		out, err := execute(admin.Token, "admin", "users", "create", "--email", "writer@example.com", "--name", "Writer", "--json")
		Expect(err).NotTo(HaveOccurred())

		var created catalog.User
		Expect(json.Unmarshal([]byte(out), &created)).To(Succeed())
		Expect(created.Email).To(Equal("writer@example.com"))
		Expect(created.Role).To(Equal(auth.RoleUser))
		Expect(created.Token).NotTo(BeEmpty())

		out, err = execute(admin.Token, "admin", "users", "list", "--json")
		Expect(err).NotTo(HaveOccurred())
		var users []catalog.User
		Expect(json.Unmarshal([]byte(out), &users)).To(Succeed())
		Expect(users).To(HaveLen(2))

		out, err = execute(admin.Token, "admin", "users", "list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("writer@example.com"))
		Expect(out).To(ContainSubstring("admin@example.com"))
	})

	It("prints the token of a created user", func() {
		out, err := execute(admin.Token, "admin", "users", "create", "--email", "boss@example.com", "--admin")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("token:"))
		Expect(out).To(ContainSubstring("admin"))
	})

	It("requires an email", func() {
		_, err := execute(admin.Token, "admin", "users", "create")
		Expect(err).To(MatchError(ContainSubstring("email")))
	})

	It("shows recorded activity", func() {
		_, err := execute(admin.Token, "admin", "users", "create", "--email", "writer@example.com")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() string {
			out, _ := execute(admin.Token, "admin", "activity", "--user", admin.ID)
			return out
		}).Should(ContainSubstring(catalog.ActionCreate))
	})

	It("rejects a non-admin token", func() {
		out, err := execute(admin.Token, "admin", "users", "create", "--email", "plain@example.com", "--json")
		Expect(err).NotTo(HaveOccurred())
		var plain catalog.User
		Expect(json.Unmarshal([]byte(out), &plain)).To(Succeed())

		_, err = execute(plain.Token, "admin", "users", "list")
		Expect(err).To(MatchError(ContainSubstring("403")))
	})
})
