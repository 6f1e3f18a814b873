package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the service.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Concierge service",
		Long: `Start the Concierge service.

The server will:
1. Load configuration from the specified file
2. Open the SQLite store
3. Register the function tools
4. Rebuild timers for persisted scheduled prompts
5. Start the Telegram long-polling transport

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  concierge serve

  # Start with custom config
  concierge serve --config /etc/concierge/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "concierge.yaml",
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// buildPromptsCmd creates the "prompts" command group for offline
// scheduled prompt management. Changes take effect when the server
// rebuilds its timers at startup.
func buildPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage scheduled prompts",
	}

	var (
		configPath string
		tenantID   string
		at         string
		prompt     string
		jobID      int64
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's scheduled prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromptsList(cmd.Context(), configPath, tenantID)
		},
	}
	listCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id (Telegram chat id)")
	_ = listCmd.MarkFlagRequired("tenant")

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a daily scheduled prompt",
		Example: `  concierge prompts add --tenant 123456789 --at 09:30 --prompt "Morning briefing"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromptsAdd(cmd.Context(), configPath, tenantID, at, prompt)
		},
	}
	addCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id (Telegram chat id)")
	addCmd.Flags().StringVar(&at, "at", "", "Daily firing time, HH:MM in the tenant's timezone")
	addCmd.Flags().StringVar(&prompt, "prompt", "", "Prompt text sent to the agent")
	_ = addCmd.MarkFlagRequired("tenant")
	_ = addCmd.MarkFlagRequired("at")
	_ = addCmd.MarkFlagRequired("prompt")

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a scheduled prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromptsRemove(cmd.Context(), configPath, jobID)
		},
	}
	removeCmd.Flags().Int64Var(&jobID, "id", 0, "Job id to remove")
	_ = removeCmd.MarkFlagRequired("id")

	for _, c := range []*cobra.Command{listCmd, addCmd, removeCmd} {
		c.Flags().StringVarP(&configPath, "config", "c", "concierge.yaml",
			"Path to YAML configuration file")
		cmd.AddCommand(c)
	}

	return cmd
}

// buildTenantsCmd creates the "tenants" command group.
func buildTenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Manage tenants",
	}

	var (
		configPath   string
		tenantID     string
		instructions string
		timezone     string
	)

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update a tenant",
		Example: `  concierge tenants set --id 123456789 --timezone Europe/Berlin \
    --instructions "You are a terse personal assistant."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenantsSet(cmd.Context(), configPath, tenantID, instructions, timezone)
		},
	}
	setCmd.Flags().StringVar(&tenantID, "id", "", "Tenant id (Telegram chat id)")
	setCmd.Flags().StringVar(&instructions, "instructions", "", "System instructions for the tenant's agent")
	setCmd.Flags().StringVar(&timezone, "timezone", "UTC", "IANA timezone for scheduled prompts")
	setCmd.Flags().StringVarP(&configPath, "config", "c", "concierge.yaml",
		"Path to YAML configuration file")
	_ = setCmd.MarkFlagRequired("id")

	cmd.AddCommand(setCmd)
	return cmd
}
