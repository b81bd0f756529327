package authcmder_test

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/inkwellhq/inkwell/cmd/inkwell/auth"
	"github.com/inkwellhq/inkwell/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "auth-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	newCmd := func(args ...string) (*cobra.Command, *bytes.Buffer) {
		cmd := authcmder.NewAuthCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.PersistentFlags().String("config-dir", "", "Override path to .inkwell/ config directory")
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd, out
	}

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Short).NotTo(BeEmpty())
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})
	})

	Describe("storing a key", func() {
		It("reads the key from piped input", func() {
			cmd, out := newCmd("gemini")
			cmd.SetIn(bytes.NewBufferString("  gm-test-key \n"))

			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Stored"))

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			key, err := mgr.GetKey("gemini")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("gm-test-key"))
		})

		It("rejects an empty key", func() {
			cmd, _ := newCmd("gemini")
			cmd.SetIn(bytes.NewBufferString("\n"))
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("cannot be empty")))
		})

		It("rejects missing input", func() {
			cmd, _ := newCmd("gemini")
			cmd.SetIn(&bytes.Buffer{})
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("no input")))
		})
	})

	Describe("--list flag", func() {
		It("shows no credentials when none stored", func() {
			cmd, out := newCmd("--list")
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No stored credentials"))
		})

		It("lists stored credentials with their env override", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("gemini", "gm-test")).To(Succeed())

			cmd, out := newCmd("--list")
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("gemini"))
			Expect(out.String()).To(ContainSubstring("GEMINI_API_KEY"))
			Expect(out.String()).NotTo(ContainSubstring("gm-test"))
		})
	})

	Describe("--remove flag", func() {
		It("removes stored credentials", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("gemini", "gm-test")).To(Succeed())

			cmd, _ := newCmd("--remove", "gemini")
			Expect(cmd.Execute()).To(Succeed())

			key, err := mgr.GetKey("gemini")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("provider argument validation", func() {
		It("returns error when no provider given", func() {
			cmd, _ := newCmd()
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("provider argument required")))
		})

		It("returns error for unsupported provider", func() {
			cmd, _ := newCmd("openai")
			cmd.SetIn(bytes.NewBufferString("sk-test\n"))
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("unsupported provider")))
		})
	})

	Describe("shell completion", func() {
		It("provides provider name completions", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{}, "")
			Expect(completions).To(ConsistOf("gemini", "ollama"))
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})

		It("provides no completions after first arg", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{"gemini"}, "")
			Expect(completions).To(BeNil())
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})
	})
})
