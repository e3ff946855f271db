package main

import (
	"fmt"

	"github.com/aretw0/otec"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of otec",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "otec version %s\n", otec.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
