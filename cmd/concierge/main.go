// Package main provides the CLI entry point for the Concierge agent
// service.
//
// Concierge connects Telegram chats to an OpenAI-backed agent with
// function calling and per-tenant scheduled prompts.
//
// # Basic Usage
//
// Start the server:
//
//	concierge serve --config concierge.yaml
//
// Manage scheduled prompts offline:
//
//	concierge prompts list --tenant 123456789
//	concierge prompts add --tenant 123456789 --at 09:30 --prompt "Morning briefing"
//
// # Environment Variables
//
//   - OPENAI_API_KEY: OpenAI API key
//   - TELEGRAM_BOT_TOKEN: Telegram bot token from @BotFather
//
// A .env file in the working directory is loaded automatically.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "concierge",
		Short: "Concierge - Telegram AI agent with scheduled prompts",
		Long: `Concierge connects Telegram chats to an OpenAI-backed agent.

Each chat gets its own agent identity with persistent conversation
context, schema-validated function tools, and daily scheduled prompts
delivered in the chat's timezone.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildPromptsCmd(),
		buildTenantsCmd(),
	)

	return rootCmd
}
