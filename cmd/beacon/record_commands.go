package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"beacon/internal/content"
	"beacon/internal/ipc"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var stateFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content records",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, value := range stateFlags {
				if _, ok := content.ParseState(value); !ok {
					return fmt.Errorf("unknown state %q (known: %s)", value, knownStates())
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RecordList(stateFlags)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(out, "No records")
					return nil
				}
				fmt.Fprintln(out, renderRecordTable(resp.Items))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&stateFlags, "state", "s", nil, "Filter by state (repeatable)")
	return cmd
}

func renderRecordTable(items []ipc.Record) string {
	headers := []string{"UID", "Title", "State", "Published", "Reactions", "Replies", "Sync"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			shortUID(item.RecordUID),
			truncate(item.Title, 40),
			item.State,
			formatWhen(item.PublishedAt),
			strconv.Itoa(item.PositiveReactions),
			strconv.Itoa(item.CommentsHandled),
			syncLabel(item.PendingSync),
		})
	}
	return renderTable(headers, rows, aligns)
}

func shortUID(uid string) string {
	if len(uid) > 8 {
		return uid[:8]
	}
	return uid
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	return value[:max-1] + "…"
}

func formatWhen(value string) string {
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("Jan 02 15:04")
}

func syncLabel(pending bool) string {
	if pending {
		return "pending"
	}
	return "ok"
}

func knownStates() string {
	states := content.AllStates()
	names := make([]string, 0, len(states))
	for _, state := range states {
		names = append(names, string(state))
	}
	return strings.Join(names, ", ")
}
