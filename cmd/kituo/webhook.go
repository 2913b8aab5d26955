package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkaninda/kituo/internal/config"
	"github.com/jkaninda/kituo/internal/gateway/telegram"
	goutils "github.com/jkaninda/go-utils"
)

var (
	webhookConfigPath  string
	webhookDropPending bool
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook registration",
}

var webhookSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Register the webhook URL and publish the bot command menu",
	RunE:  runWebhookSet,
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the webhook registration (switch back to long polling)",
	RunE:  runWebhookDelete,
}

var webhookInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current webhook registration",
	RunE:  runWebhookInfo,
}

func init() {
	webhookCmd.AddCommand(webhookSetCmd, webhookDeleteCmd, webhookInfoCmd)
	webhookCmd.PersistentFlags().StringVar(&webhookConfigPath, "config", config.DefaultConfigPath(), "path to config file")
	webhookSetCmd.Flags().BoolVar(&webhookDropPending, "drop-pending", false, "drop updates accumulated while the webhook was down")
	webhookDeleteCmd.Flags().BoolVar(&webhookDropPending, "drop-pending", false, "drop updates accumulated while the webhook was down")
}

func webhookClient() (*telegram.Client, *config.Config, error) {
	cfg, err := config.Load(goutils.Env("KITUO_CONFIG", webhookConfigPath))
	if err != nil {
		return nil, nil, err
	}
	client := telegram.NewClient(cfg.Telegram.BotToken, 30*time.Second, newLogger(), nil)
	return client, cfg, nil
}

func runWebhookSet(cmd *cobra.Command, _ []string) error {
	client, cfg, err := webhookClient()
	if err != nil {
		return err
	}
	if cfg.Telegram.WebhookURL == "" {
		return fmt.Errorf("telegram.webhook_url is required to register a webhook")
	}

	ctx := cmd.Context()
	endpoint := telegram.WebhookEndpoint(cfg.Telegram.WebhookURL, cfg.Telegram.BotToken)
	if err := client.SetWebhook(ctx, endpoint, webhookDropPending); err != nil {
		return fmt.Errorf("registering webhook: %w", err)
	}
	fmt.Printf("webhook registered: %s/<secret>\n", cfg.Telegram.WebhookURL)

	// Publish the command menu so Telegram clients offer command completion.
	err = client.SetMyCommands(ctx, []telegram.BotCommand{
		{Command: "start", Description: "Register and get started"},
		{Command: "menu", Description: "Main menu"},
		{Command: "requests", Description: "Active requests"},
		{Command: "stats", Description: "Statistics"},
		{Command: "help", Description: "Command reference"},
	})
	if err != nil {
		return fmt.Errorf("publishing command menu: %w", err)
	}
	fmt.Println("command menu published")
	return nil
}

func runWebhookDelete(cmd *cobra.Command, _ []string) error {
	client, _, err := webhookClient()
	if err != nil {
		return err
	}
	if err := client.DeleteWebhook(cmd.Context(), webhookDropPending); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	fmt.Println("webhook deleted")
	return nil
}

func runWebhookInfo(cmd *cobra.Command, _ []string) error {
	client, _, err := webhookClient()
	if err != nil {
		return err
	}
	info, err := client.GetWebhookInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching webhook info: %w", err)
	}

	if info.URL == "" {
		fmt.Println("no webhook registered (long-polling mode)")
		return nil
	}
	fmt.Printf("url: %s\n", info.URL)
	fmt.Printf("pending updates: %d\n", info.PendingUpdateCount)
	if info.LastErrorMessage != "" {
		fmt.Printf("last error: %s (%s)\n",
			info.LastErrorMessage,
			time.Unix(info.LastErrorDate, 0).UTC().Format(time.RFC3339),
		)
	}
	return nil
}
