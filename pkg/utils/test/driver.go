package testutils

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/storage"
)

// DescribeDriver registers the behavior every storage.Driver shares.
// newDriver is called before each test and the driver is closed after it.
func DescribeDriver(newDriver func() storage.Driver) {
	Describe("storage.Driver behavior", func() {
		var (
			driver storage.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = nil
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("archives a new conversation", func() {
			conv := NewTestConversation("conv-a", 2)

			n, err := driver.Sync(ctx, conv)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			got, err := driver.Get(ctx, "conv-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("conv-a"))
			Expect(got.Model).To(Equal(conv.Model))
			Expect(got.Endpoint).To(Equal(conv.Endpoint))
			Expect(got.CreatedAt.Equal(conv.CreatedAt)).To(BeTrue())
			Expect(got.Turns).To(Equal(conv.Turns))
		})

		It("appends only the turns it has not seen", func() {
			conv := NewTestConversation("conv-b", 2)
			_, err := driver.Sync(ctx, conv)
			Expect(err).NotTo(HaveOccurred())

			conv.Turns = append(conv.Turns, llm.UserTurn("follow up"), llm.AssistantTurn("sure"))
			n, err := driver.Sync(ctx, conv)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			n, err = driver.Sync(ctx, conv)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			got, err := driver.Get(ctx, "conv-b")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Turns).To(Equal(conv.Turns))
		})

		It("archives a dangling user turn", func() {
			conv := NewTestConversation("conv-c", 3)

			_, err := driver.Sync(ctx, conv)
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, "conv-c")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Turns).To(HaveLen(3))
			Expect(got.Turns[2].Role).To(Equal(llm.RoleUser))
		})

		It("refuses to rewrite history", func() {
			_, err := driver.Sync(ctx, NewTestConversation("conv-d", 4))
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.Sync(ctx, NewTestConversation("conv-d", 2))
			Expect(err).To(MatchError(storage.ErrHistoryRewritten))
		})

		It("rejects a nil conversation", func() {
			_, err := driver.Sync(ctx, nil)
			Expect(err).To(HaveOccurred())
		})

		It("returns NotFoundError for unknown IDs", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
		})

		It("lists conversations oldest first", func() {
			newer := NewTestConversation("conv-newer", 2)
			newer.CreatedAt = newer.CreatedAt.Add(1)
			older := NewTestConversation("conv-older", 4)
			older.CreatedAt = older.CreatedAt.Add(-3600e9)

			_, err := driver.Sync(ctx, newer)
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.Sync(ctx, older)
			Expect(err).NotTo(HaveOccurred())

			list, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal("conv-older"))
			Expect(list[0].Turns).To(HaveLen(4))
			Expect(list[1].ID).To(Equal("conv-newer"))
		})

		It("lists nothing when empty", func() {
			list, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})
}
