package main

import (
	"github.com/spf13/cobra"
)

// app is opened once per invocation, before the selected command runs, and
// closed by main.
var app *session

var rootCmd = &cobra.Command{
	Use:          "walletflow",
	Short:        "Multi-currency wallet with accounts, expense categories and transfers",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		app = s
		return nil
	},
}
