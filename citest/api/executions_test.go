package api_test

import (
	"io"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LaravelPlus/commander/citest/testutil"
	"github.com/LaravelPlus/commander/pkg/types"
)

var _ = Describe("Execution Endpoints", Ordered, func() {
	BeforeAll(func() {
		for i := 0; i < 3; i++ {
			_, err := client.Run(ctx, "greet", map[string]any{"name": "stats"}, nil, testutil.WithUser("carol"))
			Expect(err).NotTo(HaveOccurred())
		}
		_, err := client.Run(ctx, "report:fail", nil, nil, testutil.WithUser("carol"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("returns history newest first in an envelope", func() {
		resp, err := client.Get(ctx, "/greet/history")
		Expect(err).NotTo(HaveOccurred())
		var records []types.ExecutionRecord
		env, err := resp.Envelope(&records)
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Success).To(BeTrue())
		Expect(env.Message).To(Equal("Command history loaded successfully"))
		Expect(len(records)).To(BeNumerically(">=", 3))
		for i := 1; i < len(records); i++ {
			Expect(records[i-1].StartedAt).NotTo(BeTemporally("<", records[i].StartedAt))
		}
		Expect(records[0].Status).To(Equal(types.StatusSuccess))
		Expect(records[0].Output).NotTo(BeNil())
	})

	It("aggregates stats over completed executions", func() {
		stats, err := client.Stats(ctx, "report:fail")
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.TotalExecutions).To(BeNumerically(">=", 1))
		Expect(stats.FailedExecutions).To(Equal(stats.TotalExecutions))
		Expect(stats.SuccessRate).To(BeZero())
	})

	It("summarizes the dashboard", func() {
		dash, err := client.Dashboard(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(dash.TotalCommands).To(BeNumerically(">=", 4))
		Expect(dash.TotalExecutions).To(BeNumerically(">=", 4))
		Expect(dash.SuccessfulExecutions + dash.FailedExecutions + dash.PendingExecutions).To(Equal(dash.TotalExecutions))
		Expect(dash.ScheduledCommands).To(Equal(1))
		Expect(len(dash.RecentActivity)).To(BeNumerically("<=", 5))
	})

	It("lists recent, popular and failed commands unwrapped", func() {
		resp, err := client.Get(ctx, "/recent", testutil.WithQuery(map[string]string{"limit": "2"}))
		Expect(err).NotTo(HaveOccurred())
		var recent []types.ExecutionRecord
		Expect(resp.JSON(&recent)).To(Succeed())
		Expect(recent).To(HaveLen(2))

		resp, err = client.Get(ctx, "/popular")
		Expect(err).NotTo(HaveOccurred())
		var popular []types.PopularCommand
		Expect(resp.JSON(&popular)).To(Succeed())
		Expect(popular[0].CommandName).To(Equal("greet"))

		resp, err = client.Get(ctx, "/failed")
		Expect(err).NotTo(HaveOccurred())
		var failed []types.FailedCommand
		Expect(resp.JSON(&failed)).To(Succeed())
		Expect(failed).To(ContainElement(HaveField("CommandName", "report:fail")))
	})

	It("rejects a malformed limit", func() {
		resp, err := client.Get(ctx, "/recent", testutil.WithQuery(map[string]string{"limit": "many"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("lists executions by user", func() {
		resp, err := client.Get(ctx, "/user/carol")
		Expect(err).NotTo(HaveOccurred())
		var records []types.ExecutionRecord
		_, err = resp.Envelope(&records)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(records)).To(BeNumerically(">=", 4))
		for _, r := range records {
			Expect(*r.ExecutedBy).To(Equal("carol"))
		}
	})

	It("pages and filters activity", func() {
		resp, err := client.Get(ctx, "/activity", testutil.WithQuery(map[string]string{
			"status":   "failed",
			"command":  "report",
			"per_page": "1",
		}))
		Expect(err).NotTo(HaveOccurred())
		var page types.ActivityPage
		_, err = resp.Envelope(&page)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Data).To(HaveLen(1))
		Expect(page.Data[0].CommandName).To(Equal("report:fail"))
		Expect(page.Pagination.PerPage).To(Equal(1))
		Expect(page.Pagination.CurrentPage).To(Equal(1))
	})

	It("lists the schedule with next runs and errors", func() {
		resp, err := client.Get(ctx, "/schedule")
		Expect(err).NotTo(HaveOccurred())
		var entries []types.ScheduledCommand
		_, err = resp.Envelope(&entries)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Valid).To(BeTrue())
		Expect(entries[0].NextRunAt).NotTo(BeNil())
		Expect(entries[1].Valid).To(BeFalse())
		Expect(entries[1].Error).To(ContainSubstring("not found"))
	})

	It("exposes prometheus metrics", func() {
		resp, err := http.Get(testServer.BaseURL + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("commander_executions_total"))
		Expect(strings.Contains(string(body), `command="greet"`)).To(BeTrue())
	})

	Describe("POST /cleanup", func() {
		It("validates days", func() {
			resp, err := client.Post(ctx, "/cleanup", map[string]any{"days": 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("keeps records newer than the window", func() {
			resp, err := client.Post(ctx, "/cleanup", map[string]any{"days": 30})
			Expect(err).NotTo(HaveOccurred())
			var data map[string]int64
			env, err := resp.Envelope(&data)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Success).To(BeTrue())
			Expect(data["deleted_count"]).To(BeZero())
			Expect(env.Message).To(Equal("Successfully cleaned up 0 old records"))
		})

		It("clears failed records", func() {
			resp, err := client.Post(ctx, "/cleanup", map[string]any{"failed_only": true})
			Expect(err).NotTo(HaveOccurred())
			var data map[string]int64
			_, err = resp.Envelope(&data)
			Expect(err).NotTo(HaveOccurred())
			Expect(data["deleted_count"]).To(BeNumerically(">=", 1))

			history, err := client.History(ctx, "report:fail")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})
	})
})
