package gen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/luma/homelink/internal/meta"
)

var (
	manDir string
)

var ManPagesCmd = &cobra.Command{
	Use:   "man",
	Short: "Write man pages for the device servers and clients",
	Long: `Write one section 1 man page per homelink command, covering the socket
and thermometer servers and their clients, into --dir (man/ unless given).`,

	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		header := &doc.GenManHeader{
			Title:   "HOMELINK",
			Section: "1",
			Manual:  "homelink smart device simulator",
			Source:  meta.GetInfo().String(),
		}

		dir := filepath.Clean(manDir)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("Failed to create %s: %w", dir, err)
		}

		cmd.Root().DisableAutoGenTag = true

		if err := doc.GenManTree(cmd.Root(), header, dir); err != nil {
			return fmt.Errorf("Failed to write man pages: %w", err)
		}

		fmt.Fprintln(out, "Man pages written to", dir)

		return nil
	},
}

func init() {
	flags := ManPagesCmd.PersistentFlags()

	flags.StringVar(&manDir, "dir", "man/", "the directory to write the man pages to")

	// For bash-completion
	if err := flags.SetAnnotation("dir", cobra.BashCompSubdirsInDir, []string{}); err != nil {
		panic(err)
	}
}
