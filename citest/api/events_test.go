package api_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LaravelPlus/commander/citest/testutil"
)

var _ = Describe("GET /events", func() {
	var sse *testutil.SSEClient

	BeforeEach(func() {
		sse = testServer.SSEClient()
		Expect(sse.Connect(ctx, "/events")).To(Succeed())
		_, err := sse.WaitForEvent("server.connected", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		sse.Close()
	})

	It("streams the lifecycle of a run", func() {
		_, err := client.Run(ctx, "greet", map[string]any{"name": "events"}, nil)
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() bool { return sse.HasEventType("execution.started") }, 5*time.Second).Should(BeTrue())
		Eventually(func() bool { return sse.HasEventType("execution.completed") }, 5*time.Second).Should(BeTrue())
	})

	It("streams failures with their return code", func() {
		_, err := client.Run(ctx, "report:fail", nil, nil)
		Expect(err).NotTo(HaveOccurred())

		evt, err := sse.WaitForEvent("execution.failed", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())

		var data struct {
			Command    string `json:"command"`
			ReturnCode int    `json:"return_code"`
			Success    bool   `json:"success"`
		}
		Expect(evt.Payload(&data)).To(Succeed())
		Expect(data.Command).To(Equal("report:fail"))
		Expect(data.ReturnCode).To(Equal(2))
		Expect(data.Success).To(BeFalse())
	})
})
