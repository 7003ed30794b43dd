package chatzillacmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatzillacmder "github.com/papercomputeco/chatzilla/cmd/chatzilla"
	"github.com/papercomputeco/chatzilla/pkg/dotdir"
	"github.com/papercomputeco/chatzilla/pkg/history"
	"github.com/papercomputeco/chatzilla/pkg/llm"
	testutils "github.com/papercomputeco/chatzilla/pkg/utils/test"
)

var _ = Describe("chatzilla", func() {
	var (
		server     *testutils.StubServer
		configDir  string
		resultsDir string
		stdout     *bytes.Buffer
		stderr     *bytes.Buffer
	)

	// run executes the root command with stdin and returns its error.
	run := func(stdin string, args ...string) error {
		stdout.Reset()
		stderr.Reset()

		cmd := chatzillacmder.NewChatzillaCmd()
		cmd.SetArgs(append([]string{"--config-dir", configDir}, args...))
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(stdout)
		cmd.SetErr(stderr)
		return cmd.Execute()
	}

	chatEndpoint := func() string { return server.URL + "/api/chat" }

	BeforeEach(func() {
		server = testutils.NewStubServer()
		tmp := GinkgoT().TempDir()
		configDir = filepath.Join(tmp, ".chatzilla")
		resultsDir = filepath.Join(tmp, "results")
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}

		for _, env := range []string{
			"CHATZILLA_CLIENT_MODEL", "CHATZILLA_CLIENT_CHAT_ENDPOINT", "CHATZILLA_STORAGE_DRIVER",
			"CHATZILLA_EVENTSTREAM_PROVIDER", "DEFAULT_MODEL", "OLLAMA_CHAT",
		} {
			GinkgoT().Setenv(env, "")
			Expect(os.Unsetenv(env)).To(Succeed())
		}

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmp)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(origDir) })
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("prompt", func() {
		BeforeEach(func() {
			server.SetReply(func(testutils.RecordedRequest) string {
				return `{"model":"llama3.1","response":"An impasta!","done":true,"done_reason":"stop"}`
			})
		})

		It("prints the reply text", func() {
			err := run("", "prompt", "--endpoint", server.URL+"/api/generate", "What do you call a fake noodle?")
			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).To(Equal("An impasta!\n"))

			req := server.Requests()[0]
			Expect(req.Body).To(HaveKeyWithValue("prompt", "What do you call a fake noodle?"))
			Expect(req.Body).To(HaveKeyWithValue("model", "llama3.1"))
		})

		It("prints the whole payload with --full", func() {
			err := run("", "prompt", "--full", "--endpoint", server.URL, "noodle")
			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).To(ContainSubstring(`"done_reason": "stop"`))
		})

		It("loads the model from a .env file", func() {
			DeferCleanup(func() { _ = os.Unsetenv("DEFAULT_MODEL") })
			Expect(os.WriteFile(".env", []byte("DEFAULT_MODEL=phi3\n"), 0o600)).To(Succeed())

			err := run("", "prompt", "--endpoint", server.URL, "noodle")
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Requests()[0].Body).To(HaveKeyWithValue("model", "phi3"))
		})

		It("lets --model win over the config file", func() {
			Expect(run("", "config", "set", "client.model", "mistral")).To(Succeed())

			err := run("", "prompt", "--model", "gemma2", "--endpoint", server.URL, "noodle")
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Requests()[0].Body).To(HaveKeyWithValue("model", "gemma2"))
		})
	})

	Describe("ping", func() {
		It("prints the server reply", func() {
			server.SetReply(func(testutils.RecordedRequest) string { return "Ollama is running" })

			Expect(run("", "ping", "--url", server.URL)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("Ollama is running"))
		})

		It("fails when the server is down", func() {
			url := server.URL
			server.Close()

			Expect(run("", "ping", "--url", url)).To(HaveOccurred())
			Expect(stderr.String()).To(ContainSubstring("category=connection"))
		})

		It("logs the repo-relative source of a failure at the default level", func() {
			url := server.URL
			server.Close()

			Expect(run("", "ping", "--url", url)).To(HaveOccurred())
			Expect(stderr.String()).To(ContainSubstring("level=ERROR"))
			Expect(stderr.String()).To(MatchRegexp(`source=pkg/ollama/ping\.go:\d+`))
		})

		It("prints the body of a non-200 answer and succeeds", func() {
			server.SetStatus(http.StatusNotFound)
			server.SetReply(func(testutils.RecordedRequest) string { return "404 page not found" })

			Expect(run("", "ping", "--url", server.URL)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("404 page not found"))
			Expect(stderr.String()).To(ContainSubstring("status=404"))
		})

		It("also writes JSON log lines to --log-file", func() {
			url := server.URL
			server.Close()
			logFile := filepath.Join(GinkgoT().TempDir(), "chatzilla.log")

			Expect(run("", "--log-file", logFile, "ping", "--url", url)).To(HaveOccurred())

			data, err := os.ReadFile(logFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"msg":"ping failed"`))
			Expect(string(data)).To(ContainSubstring(`"category":"connection"`))
			Expect(stderr.String()).To(ContainSubstring("category=connection"))
		})
	})

	Describe("chat", func() {
		BeforeEach(func() {
			server.SetReply(testutils.ChatReply("Hello!"))
		})

		It("resends the history each turn and saves it on exit", func() {
			err := run("Hi\nHow are you?\n/history\n/exit\n",
				"chat", "--endpoint", chatEndpoint(), "--results-dir", resultsDir, "--save")
			Expect(err).NotTo(HaveOccurred())

			reqs := server.Requests()
			Expect(reqs).To(HaveLen(2))
			Expect(reqs[0].Messages).To(Equal([]llm.Turn{llm.UserTurn("Hi")}))
			Expect(reqs[1].Messages).To(HaveLen(3))

			Expect(stdout.String()).To(ContainSubstring("Hello!"))
			Expect(stdout.String()).To(ContainSubstring("How are you?"))

			matches, err := filepath.Glob(filepath.Join(resultsDir, "*", "run_*.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))

			turns, err := history.Load(matches[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(4))
		})

		It("opens with a system prompt", func() {
			err := run("Hi\n", "chat", "--endpoint", chatEndpoint(), "--system", "Be terse.")
			Expect(err).NotTo(HaveOccurred())

			reqs := server.Requests()
			Expect(reqs).To(HaveLen(2))
			Expect(reqs[0].Messages).To(Equal([]llm.Turn{llm.NewTurn(llm.RoleSystem, "Be terse.")}))
			Expect(reqs[1].Messages).To(HaveLen(3))
		})

		It("rejects an unknown opening role", func() {
			Expect(run("", "chat", "--role", "narrator")).To(MatchError(ContainSubstring("unknown role")))
		})

		It("resumes the saved session", func() {
			Expect(run("Hi\n", "chat", "--endpoint", chatEndpoint())).To(Succeed())
			Expect(run("again\n", "chat", "--endpoint", chatEndpoint(), "--resume")).To(Succeed())

			reqs := server.Requests()
			Expect(reqs).To(HaveLen(2))
			Expect(reqs[1].Messages).To(HaveLen(3))
			Expect(stdout.String()).To(ContainSubstring("Resuming"))
		})

		It("keeps an unanswered message in the session when the server is down", func() {
			url := chatEndpoint()
			server.Close()

			Expect(run("Hi\n", "chat", "--endpoint", url)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("/retry"))

			state, err := dotdir.NewManager().LoadSession(configDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Turns).To(Equal([]llm.Turn{llm.UserTurn("Hi")}))
			Expect(state.Pending).To(BeTrue())

			server = testutils.NewStubServer()
			Expect(run("/retry\n", "chat", "--endpoint", chatEndpoint(), "--resume")).To(Succeed())

			reqs := server.Requests()
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].Messages).To(Equal([]llm.Turn{llm.UserTurn("Hi")}))

			state, err = dotdir.NewManager().LoadSession(configDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Turns).To(HaveLen(2))
			Expect(state.Pending).To(BeFalse())
		})

		It("archives the conversation in sqlite", func() {
			dbPath := filepath.Join(configDir, "archive.db")
			err := run("Hi\nagain\n", "chat", "--endpoint", chatEndpoint(), "--storage", "sqlite", "--sqlite", dbPath)
			Expect(err).NotTo(HaveOccurred())

			state, err := dotdir.NewManager().LoadSession(configDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(run("", "history", "list", "--storage", "sqlite", "--sqlite", dbPath)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring(state.ConversationID))
			Expect(stdout.String()).To(ContainSubstring("4 turns"))

			Expect(run("", "history", "get", state.ConversationID, "--storage", "sqlite", "--sqlite", dbPath)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("again"))
		})
	})

	Describe("demo", func() {
		It("runs the script and saves the history", func() {
			err := run("", "demo", "--set", "1", "--endpoint", chatEndpoint(), "--results-dir", resultsDir)
			Expect(err).NotTo(HaveOccurred())

			reqs := server.Requests()
			Expect(reqs).To(HaveLen(3))
			Expect(reqs[2].Messages).To(HaveLen(5))

			matches, err := filepath.Glob(filepath.Join(resultsDir, "*", "run_*.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))

			data, err := os.ReadFile(matches[0])
			Expect(err).NotTo(HaveOccurred())
			var turns []llm.Turn
			Expect(json.Unmarshal(data, &turns)).To(Succeed())
			Expect(turns).To(HaveLen(6))
		})

		It("rejects unknown sets", func() {
			Expect(run("", "demo", "--set", "9")).To(MatchError(ContainSubstring("unknown set")))
			Expect(server.Requests()).To(BeEmpty())
		})
	})

	Describe("history", func() {
		It("shows a saved history file", func() {
			path, err := history.Save(resultsDir, []llm.Turn{llm.UserTurn("Hi"), llm.AssistantTurn("Hello!")})
			Expect(err).NotTo(HaveOccurred())

			Expect(run("", "history", "show", path)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("Hello!"))
		})

		It("needs an archive to list", func() {
			Expect(run("", "history", "list")).To(MatchError(ContainSubstring("no conversation archive")))
		})
	})

	Describe("config", func() {
		It("sets, gets, and lists values", func() {
			Expect(run("", "config", "set", "client.model", "mistral")).To(Succeed())
			Expect(filepath.Join(configDir, "config.toml")).To(BeAnExistingFile())

			Expect(run("", "config", "get", "client.model")).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("mistral"))

			Expect(run("", "config", "list")).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("client.model"))
			Expect(stdout.String()).To(ContainSubstring("<not set>"))
		})

		It("masks the postgres password", func() {
			Expect(run("", "config", "set", "storage.postgres_dsn", "postgres://me:hunter2@db:5432/chat")).To(Succeed())
			Expect(stdout.String()).NotTo(ContainSubstring("hunter2"))

			Expect(run("", "config", "list")).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("postgres://me:xxxxx@db:5432/chat"))
			Expect(stdout.String()).NotTo(ContainSubstring("hunter2"))
		})

		It("rejects unknown keys", func() {
			Expect(run("", "config", "set", "proxy.listen", ":8080")).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	It("prints the version", func() {
		Expect(run("", "version")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("Version: dev"))
	})
})
