package main

import (
	"fmt"

	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/problem"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("subspaceopt version %s\n", version)
		fmt.Printf("methods:  %v\n", method.Names())
		fmt.Printf("problems: %v\n", problem.Names())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
