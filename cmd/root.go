package cmd

import (
	"github.com/carousell/ct-go/pkg/logger/log"
	"github.com/joho/godotenv"
	"github.com/rubihq/chat-sync/internal/app"
	"github.com/rubihq/chat-sync/internal/server"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "chat-sync",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		app.Invoke(
			server.StartServer,
			app.StartEngine,
		).Run()
	},
}

func Execute() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
