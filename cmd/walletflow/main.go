// Command walletflow manages a multi-currency wallet from the terminal:
// accounts, expense categories, transfers between them and spending reports.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if app != nil {
		if cerr := app.close(context.Background()); cerr != nil {
			fmt.Fprintln(os.Stderr, "Error:", cerr)
			if err == nil {
				err = cerr
			}
		}
	}
	if err != nil {
		os.Exit(1)
	}
}
