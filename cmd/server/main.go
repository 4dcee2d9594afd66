package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-roleplay-desk/internal/config"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "roleplay-desk",
		Short:         "Sales roleplay practice behind Supabase sign in",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file read before the environment")

	rootCmd.AddCommand(serveCmd(&envFile), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*envFile)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("roleplay-desk %s (%s)\n", version, commit)
		},
	}
}
