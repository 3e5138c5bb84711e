package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/voicerag/internal/cli"
	"github.com/cloo-solutions/voicerag/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := client.NewRootCmd(version)
	cli.AddHelpJSONFlag(rootCmd)

	if handled, err := cli.CheckHelpJSON(rootCmd, os.Args[1:], os.Stdout); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
