package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatzilla/pkg/dotdir"
	"github.com/papercomputeco/chatzilla/pkg/llm"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("returns nil when no session was saved", func() {
		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("round-trips a session", func() {
		state := &dotdir.SessionState{
			ConversationID: "conv-1",
			Model:          "llama3.1",
			Endpoint:       "http://localhost:11434/api/chat",
			Turns:          []llm.Turn{llm.UserTurn("Hi"), llm.AssistantTurn("Hello!")},
		}
		Expect(m.SaveSession(state, tmpDir)).To(Succeed())

		loaded, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(state))
	})

	It("keeps the pending mark of an unanswered turn", func() {
		state := &dotdir.SessionState{
			ConversationID: "conv-2",
			Turns:          []llm.Turn{llm.AssistantTurn("seed")},
			Pending:        true,
		}
		Expect(m.SaveSession(state, tmpDir)).To(Succeed())

		loaded, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Pending).To(BeTrue())
	})

	It("returns an error for a corrupt session file", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("{"), 0o600)).To(Succeed())

		_, err := m.LoadSession(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing session state")))
	})

	It("refuses to save a nil session", func() {
		Expect(m.SaveSession(nil, tmpDir)).To(MatchError("cannot save nil session state"))
	})

	It("clears a saved session and tolerates clearing twice", func() {
		Expect(m.SaveSession(&dotdir.SessionState{ConversationID: "conv-1"}, tmpDir)).To(Succeed())

		Expect(m.ClearSession(tmpDir)).To(Succeed())
		Expect(m.ClearSession(tmpDir)).To(Succeed())

		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})
})
