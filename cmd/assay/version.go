package main

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/haserjian/assay"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("assay version", assay.Version)
		if info, ok := debug.ReadBuildInfo(); ok {
			cmd.Println("go version", info.GoVersion)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
