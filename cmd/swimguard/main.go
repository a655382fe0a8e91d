// Package main provides the swimguard command-line entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swimguard",
	Short: "SWIM + Lifeguard cluster membership agent",
	Long:  "swimguard runs a SWIM failure-detector node with Lifeguard local-health extensions, exposing an admin/status HTTP surface alongside the membership protocol.",
}

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(simulateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
