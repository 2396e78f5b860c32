package api_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LaravelPlus/commander/citest/testutil"
	"github.com/LaravelPlus/commander/pkg/types"
)

var _ = Describe("Command Endpoints", func() {
	Describe("GET /list", func() {
		It("lists registered commands with descriptors", func() {
			views, err := client.ListCommands(ctx)
			Expect(err).NotTo(HaveOccurred())

			byName := map[string]types.CommandView{}
			for _, v := range views {
				byName[v.Name] = v
			}
			Expect(byName).To(HaveKey("greet"))
			Expect(byName).To(HaveKey("report:fail"))
			Expect(byName["db:wipe"].Disabled).To(BeTrue())
			Expect(byName["greet"].Arguments).To(HaveLen(1))
			Expect(byName["greet"].Arguments[0].Required).To(BeTrue())
		})
	})

	Describe("POST /run", func() {
		It("runs a command and returns its output", func() {
			result, err := client.Run(ctx, "greet", map[string]any{"name": "world"}, nil, testutil.WithUser("alice"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.ReturnCode).To(Equal(0))
			Expect(result.Output).To(ContainSubstring("world"))
			Expect(result.ExecutionID).NotTo(BeEmpty())
			Expect(result.StartedAt).NotTo(BeEmpty())
		})

		It("reports a non-zero exit as a failed result with status 200", func() {
			resp, err := client.RunCommand(ctx, "report:fail", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result types.ExecutionResult
			Expect(resp.JSON(&result)).To(Succeed())
			Expect(result.Success).To(BeFalse())
			Expect(result.ReturnCode).To(Equal(2))
			Expect(result.Output).To(ContainSubstring("report failed"))
		})

		It("rejects a disabled command with 403 and records nothing", func() {
			resp, err := client.RunCommand(ctx, "db:wipe", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			env, err := resp.Envelope(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Success).To(BeFalse())
			Expect(env.Message).To(Equal("This command is disabled and cannot be executed"))

			history, err := client.History(ctx, "db:wipe")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})

		It("rejects an unknown command with 404 and suggestions", func() {
			resp, err := client.RunCommand(ctx, "gret", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			var data struct {
				Suggestions []string `json:"suggestions"`
			}
			_, err = resp.Envelope(&data)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Suggestions).To(ContainElement("greet"))
		})

		It("requires a command name", func() {
			resp, err := client.Post(ctx, "/run", map[string]any{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects arguments that are not an object", func() {
			resp, err := client.Post(ctx, "/run", map[string]any{"command": "greet", "arguments": "world"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("runs ignored commands without recording them", func() {
			result, err := client.Run(ctx, "queue:restart", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.ExecutionID).To(BeEmpty())

			history, err := client.History(ctx, "queue:restart")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})
	})

	Describe("POST /retry", Ordered, func() {
		It("returns 404 when the command never ran", func() {
			resp, err := client.Retry(ctx, "report:never")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("re-runs with the arguments of the last execution", func() {
			_, err := client.Run(ctx, "greet", map[string]any{"name": "retry-target"}, nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := client.Retry(ctx, "greet", testutil.WithUser("bob"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result types.ExecutionResult
			Expect(resp.JSON(&result)).To(Succeed())
			Expect(result.Output).To(ContainSubstring("retry-target"))

			history, err := client.History(ctx, "greet")
			Expect(err).NotTo(HaveOccurred())
			Expect(history[0].Arguments).To(HaveKeyWithValue("name", "retry-target"))
			Expect(history[0].ExecutedBy).NotTo(BeNil())
			Expect(*history[0].ExecutedBy).To(Equal("bob"))
		})
	})

	Describe("catalog browsing", func() {
		It("searches by name and description", func() {
			resp, err := client.Get(ctx, "/search", testutil.WithQuery(map[string]string{"query": "greeting"}))
			Expect(err).NotTo(HaveOccurred())
			var found []types.CommandDescriptor
			_, err = resp.Envelope(&found)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(ContainElement(HaveField("Name", "greet")))
		})

		It("lists categories and their commands", func() {
			resp, err := client.Get(ctx, "/categories")
			Expect(err).NotTo(HaveOccurred())
			var categories []string
			_, err = resp.Envelope(&categories)
			Expect(err).NotTo(HaveOccurred())
			Expect(categories).To(ContainElements("report", "db"))

			resp, err = client.Get(ctx, "/category/report")
			Expect(err).NotTo(HaveOccurred())
			var commands []types.CommandDescriptor
			_, err = resp.Envelope(&commands)
			Expect(err).NotTo(HaveOccurred())
			Expect(commands).To(ConsistOf(HaveField("Name", "report:fail")))
		})

		It("serves the development test route outside production", func() {
			resp, err := client.Get(ctx, "/test")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
