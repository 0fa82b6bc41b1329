package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"beacon/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				writeStatus(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

func writeStatus(out io.Writer, resp *ipc.StatusResponse) {
	colorize := shouldColorize(out)

	runningKind := statusError
	runningMsg := "stopped"
	if resp.Running {
		runningKind = statusOK
		runningMsg = fmt.Sprintf("pid %d", resp.PID)
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningMsg, colorize))

	quotaKind := statusOK
	if resp.QuotaUsed >= resp.QuotaLimit {
		quotaKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Quota", quotaKind,
		fmt.Sprintf("%d/%d today", resp.QuotaUsed, resp.QuotaLimit), colorize))

	fmt.Fprintln(out, renderStatusLine("Next slot", statusInfo, formatStamp(resp.NextSlot, "Mon 15:04"), colorize))
	if resp.NextEligiblePublication != "" {
		fmt.Fprintln(out, renderStatusLine("Next publish", statusInfo,
			formatStamp(resp.NextEligiblePublication, "Mon 15:04"), colorize))
	}

	fmt.Fprintln(out, renderLoopLine("Generation", resp.Generation, colorize))
	fmt.Fprintln(out, renderLoopLine("Publication", resp.Publication, colorize))
	fmt.Fprintln(out, renderLoopLine("Monitoring", resp.Monitoring, colorize))

	storeKind := statusOK
	storeMsg := "primary healthy"
	switch {
	case resp.StoreDegraded:
		storeKind = statusWarn
		storeMsg = fmt.Sprintf("degraded, %d records pending sync", resp.StorePendingSync)
	case resp.StorePendingSync > 0:
		storeKind = statusWarn
		storeMsg = fmt.Sprintf("%d records pending sync", resp.StorePendingSync)
	}
	fmt.Fprintln(out, renderStatusLine("Store", storeKind, storeMsg, colorize))
	fmt.Fprintln(out, renderStatusLine("Local db", statusInfo, resp.LocalStorePath, colorize))
}

// renderLoopLine summarizes one background loop: running flag, last tick
// outcome, and the last error when one is recorded.
func renderLoopLine(label string, loop ipc.LoopStatus, colorize bool) string {
	kind := statusError
	message := "stopped"
	if loop.Running {
		kind = statusOK
		message = "running"
	}
	if loop.LastOutcome != "" {
		message += ", last tick " + loop.LastOutcome
		if tick := formatStamp(loop.LastTick, "15:04:05"); tick != "" {
			message += " at " + tick
		}
	}
	if loop.LastError != "" {
		kind = statusWarn
		message += " (" + loop.LastError + ")"
	}
	return renderStatusLine(label, kind, message, colorize)
}

func formatStamp(value, layout string) string {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.Local().Format(layout)
	}
	return value
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText = fmt.Sprintf("%s %s", statusText, message)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
