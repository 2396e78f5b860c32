package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/LaravelPlus/commander/pkg/types"
)

var (
	successColor = color.New(color.FgGreen)
	failedColor  = color.New(color.FgRed)
	pendingColor = color.New(color.FgYellow)
	headerColor  = color.New(color.FgCyan, color.Bold)
	dimColor     = color.New(color.Faint)
)

func applyColorFlag() {
	if noColor || jsonOut {
		color.NoColor = true
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func statusLabel(status types.ExecutionStatus) string {
	switch status {
	case types.StatusSuccess:
		return successColor.Sprint(status)
	case types.StatusFailed:
		return failedColor.Sprint(status)
	case types.StatusPending:
		return pendingColor.Sprint(status)
	}
	return dimColor.Sprint("never")
}

func seconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2fs", *v)
}

// ago renders t relative to now, or "-" for the zero time.
func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func agoRFC3339(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return ago(t)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
