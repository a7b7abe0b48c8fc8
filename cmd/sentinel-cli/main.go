package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvusHold/sentinel/internal/version"
)

var apiURL string

func main() {
	root := &cobra.Command{
		Use:   "sentinel-cli",
		Short: "Admin CLI for the Sentinel API",
	}
	root.PersistentFlags().StringVar(&apiURL, "api-url", envOr("SENTINEL_API_URL", "http://localhost:8080"), "base URL of the Sentinel API")

	root.AddCommand(newPublishCmd())
	root.AddCommand(newBrokersCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newPermissionsCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
