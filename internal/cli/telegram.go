package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/castle/internal/config"
	"github.com/dukerupert/castle/internal/telegram"
)

// TelegramCmd returns the telegram command
func TelegramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Telegram bot helpers",
	}
	cmd.AddCommand(telegramChatsCmd(), telegramTestCmd())
	return cmd
}

func telegramChatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List chats that have messaged the bot, to find TELEGRAM_CHAT_ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cfg.TelegramBotToken == "" {
				return errors.New("TELEGRAM_BOT_TOKEN is not set")
			}

			chats, err := telegram.NewClient(cfg.TelegramBotToken, "").Chats(cmd.Context())
			if err != nil {
				return err
			}
			if len(chats) == 0 {
				fmt.Println("No chats yet. Add the bot to the staff group and send it a message, then retry.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tTITLE")
			for _, c := range chats {
				title := c.Title
				if title == "" {
					title = c.Name
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Type, title)
			}
			return w.Flush()
		},
	}
}

func telegramTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [message]",
		Short: "Send a test message to the configured chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if !cfg.TelegramEnabled() {
				return errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set")
			}

			text := "Castle checklist bot is connected."
			if len(args) == 1 {
				text = args[0]
			}
			if err := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID).SendMessage(cmd.Context(), text); err != nil {
				return err
			}
			fmt.Println("Sent.")
			return nil
		},
	}
}
