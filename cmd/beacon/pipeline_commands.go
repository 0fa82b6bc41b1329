package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"beacon/internal/ipc"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start all pipeline loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Started {
					fmt.Fprintln(out, "Pipeline loops started")
					return nil
				}
				if resp.Message != "" {
					fmt.Fprintln(out, resp.Message)
				} else {
					fmt.Fprintln(out, "Loops not started")
				}
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop all pipeline loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Stopped {
					fmt.Fprintln(out, "Pipeline loops stopped")
					return nil
				}
				if resp.Message != "" {
					fmt.Fprintln(out, resp.Message)
				} else {
					fmt.Fprintln(out, "Loops not stopped")
				}
				return nil
			})
		},
	}
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate one draft now, outside the slot schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Generate()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Generated {
					fmt.Fprintln(out, "Draft generated")
					return nil
				}
				if resp.Message != "" {
					fmt.Fprintln(out, resp.Message)
				} else {
					fmt.Fprintln(out, "Generation skipped")
				}
				return nil
			})
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pending records into the primary store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sync()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Synced == 0 {
					fmt.Fprintln(out, "Nothing to sync")
				} else {
					fmt.Fprintf(out, "Synced %d records\n", resp.Synced)
				}
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case resp.Sent:
					fmt.Fprintln(out, "Test notification sent")
				case resp.Message != "":
					fmt.Fprintln(out, resp.Message)
				default:
					fmt.Fprintln(out, "Notification not sent")
				}
				return nil
			})
		},
	}
}
