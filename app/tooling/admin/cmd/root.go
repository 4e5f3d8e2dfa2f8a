// Package cmd contains the ledger admin app.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var url string

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:9080", "Url of the node's private host.")
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer a running ledger node",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
