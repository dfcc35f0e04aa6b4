package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaya-ai/relaya/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relayad",
		Short: "Relaya knowledge retrieval daemon",
		Long:  "Relaya daemon for serving the knowledge retrieval API and running the document ingestion worker",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
