package ollama_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatzilla/pkg/eventstream"
	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/logger"
	"github.com/papercomputeco/chatzilla/pkg/ollama"
	"github.com/papercomputeco/chatzilla/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/chatzilla/pkg/utils/test"
)

// flakyDoer fails every request while down is set.
type flakyDoer struct {
	down bool
}

func (f *flakyDoer) Do(req *http.Request) (*http.Response, error) {
	if f.down {
		return nil, errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")
	}
	return http.DefaultClient.Do(req)
}

var _ = Describe("Conversation", func() {
	var (
		server *testutils.StubServer
		doer   *flakyDoer
		conv   *ollama.Conversation
		ctx    context.Context
	)

	BeforeEach(func() {
		server = testutils.NewStubServer()
		doer = &flakyDoer{}
		ctx = context.Background()
		conv = ollama.NewConversation(
			ollama.NewClient(ollama.WithHTTPClient(doer)),
			ollama.Endpoint(server.URL, ollama.ChatPath),
		)
	})

	AfterEach(func() {
		server.Close()
	})

	It("starts empty with the default model", func() {
		Expect(conv.History()).To(BeEmpty())
		Expect(conv.Model()).To(Equal("llama3.1"))
		Expect(conv.ID()).NotTo(BeEmpty())
		Expect(conv.Endpoint()).To(HaveSuffix("/api/chat"))
		Expect(conv.Pending()).To(BeFalse())
	})

	Describe("Begin", func() {
		It("returns the reply and records both turns", func() {
			server.SetReply(testutils.ChatReply("Hello!"))

			reply, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text()).To(Equal("Hello!"))
			Expect(conv.History()).To(Equal([]llm.Turn{
				{Role: llm.RoleUser, Content: "Hi"},
				{Role: llm.RoleAssistant, Content: "Hello!"},
			}))
		})

		It("sends only the opening turn", func() {
			_, err := conv.Begin(ctx, "You are terse.", llm.RoleSystem)
			Expect(err).NotTo(HaveOccurred())

			reqs := server.Requests()
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].Messages).To(Equal([]llm.Turn{llm.NewTurn(llm.RoleSystem, "You are terse.")}))
			Expect(reqs[0].Body).To(HaveKeyWithValue("model", "llama3.1"))
			Expect(reqs[0].Body).To(HaveKeyWithValue("stream", false))
		})

		It("rejects unknown roles without touching the history", func() {
			_, err := conv.Begin(ctx, "Hi", llm.Role("narrator"))
			Expect(err).To(MatchError(ollama.ErrInvalidRole))
			Expect(conv.History()).To(BeEmpty())
			Expect(server.Requests()).To(BeEmpty())
		})

		It("uses the configured model", func() {
			conv = ollama.NewConversation(ollama.NewClient(), server.URL, ollama.WithModel("mistral"))

			_, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Requests()[0].Body).To(HaveKeyWithValue("model", "mistral"))
		})
	})

	Describe("Next", func() {
		It("grows the history by two turns per exchange, in call order", func() {
			_, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())

			const n = 4
			for i := range n {
				_, err := conv.Next(ctx, "more "+string(rune('a'+i)))
				Expect(err).NotTo(HaveOccurred())
			}

			history := conv.History()
			Expect(history).To(HaveLen(2 + 2*n))
			for i, turn := range history {
				if i%2 == 0 {
					Expect(turn.Role).To(Equal(llm.RoleUser))
				} else {
					Expect(turn.Role).To(Equal(llm.RoleAssistant))
				}
			}
			Expect(history[2].Content).To(Equal("more a"))
			Expect(history[8].Content).To(Equal("more d"))
		})

		It("resends the full history on the k-th call", func() {
			_, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())

			for k := 1; k <= 3; k++ {
				_, err := conv.Next(ctx, "again")
				Expect(err).NotTo(HaveOccurred())

				reqs := server.Requests()
				sent := reqs[len(reqs)-1].Messages
				Expect(sent).To(HaveLen(2*k + 1))
				Expect(sent[len(sent)-1]).To(Equal(llm.UserTurn("again")))
				Expect(sent).To(Equal(conv.History()[:2*k+1]))
			}
		})

		It("sends only the new turn on an empty conversation", func() {
			_, err := conv.Next(ctx, "Hi")
			Expect(err).NotTo(HaveOccurred())

			Expect(server.Requests()[0].Messages).To(Equal([]llm.Turn{llm.UserTurn("Hi")}))
			Expect(conv.History()).To(HaveLen(2))
		})

		It("leaves a dangling user turn when the transport fails", func() {
			_, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())

			doer.down = true
			_, err = conv.Next(ctx, "are you there?")
			Expect(err).To(MatchError(ContainSubstring("connection refused")))

			history := conv.History()
			Expect(history).To(HaveLen(3))
			Expect(history[2]).To(Equal(llm.UserTurn("are you there?")))
			Expect(conv.Pending()).To(BeTrue())
		})

		It("leaves a dangling user turn when message.content is missing", func() {
			server.SetReply(func(testutils.RecordedRequest) string { return `{"message": {}}` })

			_, err := conv.Next(ctx, "Hi")
			Expect(err).To(MatchError(ollama.ErrMissingField))
			Expect(conv.History()).To(Equal([]llm.Turn{llm.UserTurn("Hi")}))
		})

		It("returns a StatusError for non-200 replies", func() {
			server.SetStatus(http.StatusInternalServerError)
			server.SetReply(func(testutils.RecordedRequest) string { return `{"error":"boom"}` })

			_, err := conv.Next(ctx, "Hi")

			var statusErr *ollama.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Retry", func() {
		It("resends a dangling turn without duplicating it", func() {
			_, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())

			doer.down = true
			_, err = conv.Next(ctx, "still there?")
			Expect(err).To(HaveOccurred())

			doer.down = false
			server.SetReply(testutils.ChatReply("Yes."))
			reply, err := conv.Retry(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text()).To(Equal("Yes."))

			Expect(conv.History()).To(Equal([]llm.Turn{
				llm.UserTurn("Hi"),
				llm.AssistantTurn("ok"),
				llm.UserTurn("still there?"),
				llm.AssistantTurn("Yes."),
			}))
			Expect(conv.Pending()).To(BeFalse())

			reqs := server.Requests()
			Expect(reqs[len(reqs)-1].Messages).To(HaveLen(3))
		})

		It("retries a failed Begin whatever the opening role", func() {
			doer.down = true
			_, err := conv.Begin(ctx, "seed", llm.RoleAssistant)
			Expect(err).To(HaveOccurred())
			Expect(conv.History()).To(Equal([]llm.Turn{llm.AssistantTurn("seed")}))
			Expect(conv.Pending()).To(BeTrue())

			doer.down = false
			_, err = conv.Retry(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(conv.History()).To(HaveLen(2))
			Expect(conv.Pending()).To(BeFalse())
			Expect(server.Requests()[0].Messages).To(Equal([]llm.Turn{llm.AssistantTurn("seed")}))
		})

		It("fails when nothing is pending", func() {
			_, err := conv.Retry(ctx)
			Expect(err).To(MatchError(ollama.ErrNothingPending))

			_, err = conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())

			_, err = conv.Retry(ctx)
			Expect(err).To(MatchError(ollama.ErrNothingPending))
		})
	})

	Describe("resuming", func() {
		It("continues from seeded turns", func() {
			seed := []llm.Turn{llm.UserTurn("Hi"), llm.AssistantTurn("Hello!")}
			conv = ollama.NewConversation(ollama.NewClient(), server.URL, ollama.WithHistory(seed))

			_, err := conv.Next(ctx, "again")
			Expect(err).NotTo(HaveOccurred())

			Expect(server.Requests()[0].Messages).To(HaveLen(3))
			Expect(conv.History()).To(HaveLen(4))
			Expect(seed).To(HaveLen(2))
		})

		It("is not pending unless told so", func() {
			conv = ollama.NewConversation(ollama.NewClient(), server.URL,
				ollama.WithHistory([]llm.Turn{llm.UserTurn("Hi")}))
			Expect(conv.Pending()).To(BeFalse())

			conv = ollama.NewConversation(ollama.NewClient(), server.URL, ollama.WithPending(true))
			Expect(conv.Pending()).To(BeFalse())
		})

		It("can retry a seeded dangling turn", func() {
			conv = ollama.NewConversation(ollama.NewClient(), server.URL,
				ollama.WithHistory([]llm.Turn{llm.UserTurn("Hi")}),
				ollama.WithPending(true),
			)
			Expect(conv.Pending()).To(BeTrue())

			_, err := conv.Retry(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(conv.History()).To(HaveLen(2))
		})
	})

	Describe("windowing", func() {
		It("trims the payload but keeps the history", func() {
			conv = ollama.NewConversation(ollama.NewClient(), server.URL, ollama.WithWindow(llm.LastN(3)))

			_, err := conv.Begin(ctx, "You are terse.", llm.RoleSystem)
			Expect(err).NotTo(HaveOccurred())
			for range 3 {
				_, err := conv.Next(ctx, "q")
				Expect(err).NotTo(HaveOccurred())
			}

			reqs := server.Requests()
			sent := reqs[len(reqs)-1].Messages
			Expect(sent).To(HaveLen(4))
			Expect(sent[0].Role).To(Equal(llm.RoleSystem))
			Expect(conv.History()).To(HaveLen(8))
		})
	})

	Describe("observers", func() {
		It("archives the conversation after every exchange", func() {
			driver := inmemory.NewDriver()
			conv = ollama.NewConversation(ollama.NewClient(), server.URL,
				ollama.WithRecorder(driver),
				ollama.WithConversationID("conv-1"),
			)

			_, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			_, err = conv.Next(ctx, "again")
			Expect(err).NotTo(HaveOccurred())

			archived, err := driver.Get(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(archived.Turns).To(Equal(conv.History()))
			Expect(archived.Model).To(Equal("llama3.1"))
		})

		It("publishes a turn event per exchange", func() {
			pub := &testutils.MockPublisher{}
			conv = ollama.NewConversation(ollama.NewClient(), server.URL,
				ollama.WithPublisher(pub),
				ollama.WithConversationID("conv-2"),
			)

			_, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			_, err = conv.Next(ctx, "again")
			Expect(err).NotTo(HaveOccurred())

			Expect(pub.Events).To(HaveLen(2))
			last := pub.Events[1]
			Expect(last.EventType).To(Equal(eventstream.EventTypeTurnCompleted))
			Expect(last.ConversationID).To(Equal("conv-2"))
			Expect(last.TurnIndex).To(Equal(3))
			Expect(last.Exchange.Sent).To(HaveLen(3))
			Expect(last.Exchange.Request()).To(Equal(llm.UserTurn("again")))
			Expect(last.Exchange.Reply).To(Equal(llm.AssistantTurn("ok")))
		})

		It("logs observer failures without failing the exchange", func() {
			var buf bytes.Buffer
			conv = ollama.NewConversation(ollama.NewClient(), server.URL,
				ollama.WithRecorder(testutils.FailingDriver{}),
				ollama.WithPublisher(&testutils.MockPublisher{Fail: true}),
				ollama.WithConversationLogger(logger.New(logger.WithWriter(&buf))),
			)

			reply, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text()).To(Equal("ok"))
			Expect(conv.History()).To(HaveLen(2))

			Expect(buf.String()).To(ContainSubstring("failed to archive conversation"))
			Expect(buf.String()).To(ContainSubstring("failed to publish turn event"))
		})

		It("does not notify observers when the exchange fails", func() {
			pub := &testutils.MockPublisher{}
			conv = ollama.NewConversation(ollama.NewClient(ollama.WithHTTPClient(doer)), server.URL,
				ollama.WithPublisher(pub),
			)

			doer.down = true
			_, err := conv.Begin(ctx, "Hi", llm.RoleUser)
			Expect(err).To(HaveOccurred())
			Expect(pub.Events).To(BeEmpty())
		})
	})
})
