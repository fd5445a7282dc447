package gen_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/homelink/cmd/gen"
)

var _ = Describe("gen man", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "homelink-man")
		Expect(err).To(Succeed())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("writes a page per command into a new directory", func() {
		target := filepath.Join(dir, "pages")
		Expect(gen.ManPagesCmd.PersistentFlags().Set("dir", target)).To(Succeed())

		out := &bytes.Buffer{}
		gen.ManPagesCmd.SetOut(out)

		Expect(gen.ManPagesCmd.RunE(gen.ManPagesCmd, nil)).To(Succeed())
		Expect(out.String()).To(ContainSubstring(target))

		page, err := ioutil.ReadFile(filepath.Join(target, "gen-man.1"))
		Expect(err).To(Succeed())
		Expect(string(page)).To(ContainSubstring("homelink smart device simulator"))
	})
})
