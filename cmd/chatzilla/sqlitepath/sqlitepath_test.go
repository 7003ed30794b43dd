package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		homeDir string
		cwd     string
	)

	BeforeEach(func() {
		var err error
		homeDir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		cwd, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		GinkgoT().Setenv("HOME", homeDir)
		GinkgoT().Setenv("XDG_DATA_HOME", "")

		origCwd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(cwd)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(origCwd) })
	})

	It("prefers the override", func() {
		path, err := ResolveSQLitePath("/tmp/custom.db", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("resolves ~/.chatzilla/chatzilla.db when present", func() {
		existing := filepath.Join(homeDir, ".chatzilla", FileName)
		Expect(os.MkdirAll(filepath.Dir(existing), 0o755)).To(Succeed())
		Expect(os.WriteFile(existing, nil, 0o600)).To(Succeed())

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(existing))
	})

	It("prefers an archive in the working directory", func() {
		Expect(os.WriteFile(filepath.Join(cwd, FileName), nil, 0o600)).To(Succeed())

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(FileName))
	})

	It("defaults to the config directory", func() {
		configDir := filepath.Join(cwd, "cfg")

		path, err := ResolveSQLitePath("", configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(configDir, FileName)))
		Expect(configDir).To(BeADirectory())
	})

	It("falls back to ~/.chatzilla when nothing exists", func() {
		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(homeDir, ".chatzilla", FileName)))
	})
})
