package servecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/inkwellhq/inkwell/cmd/inkwell/serve"
)

var _ = Describe("Serve commands", func() {
	It("registers the shared server flags", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
		for _, name := range []string{
			"api-listen", "storage-driver", "sqlite", "dsn",
			"generator-provider", "generator-model", "generator-target",
			"eventstream-provider", "eventstream-topic", "admin-email", "json-logs", "log-file",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("defaults flags from the built-in config", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("api-listen").DefValue).To(Equal(":8081"))
		Expect(cmd.Flags().Lookup("storage-driver").DefValue).To(Equal("memory"))
		Expect(cmd.Flags().Lookup("generator-provider").DefValue).To(Equal("template"))
	})

	It("uses --listen for the standalone binary", func() {
		cmd := servecmder.NewAPICmd()
		Expect(cmd.Use).To(Equal("inkwellapi"))
		Expect(cmd.Flags().Lookup("listen")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("api-listen")).To(BeNil())
	})
})
