package gen

import (
	"github.com/spf13/cobra"
)

// RootCmd groups the generators for files that ship alongside the binary.
var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate documentation for homelink",
	Long: `Generate documentation for homelink

Usage
	homelink gen man --dir man/
`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}
