package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shineum/ses-notify/internal/email"
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "sesnotify",
		Short: "Send transactional email through Amazon SES",
		Long: `sesnotify signs and submits transactional email to the Amazon SES
query API without the AWS SDK send path.

Example:
  sesnotify send --to a@example.com --subject Hi --html-file body.html
  sesnotify notify booking --email guest@example.com --service Haircut --start 2026-06-12T15:00:00Z
  sesnotify sign --body 'Action=SendEmail' --time 2026-06-12T15:00:00Z`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file (optional)")

	root.AddCommand(newSendCmd(&configPath))
	root.AddCommand(newSignCmd(&configPath))
	root.AddCommand(newNotifyCmd(&configPath))

	return root
}

// printOutcomes writes one tab-separated line per outcome.
func printOutcomes(w io.Writer, outcomes []email.Outcome) {
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", o.Recipient, o.Status(), o)
	}
}

// parseTime accepts RFC 3339 timestamps. Empty means zero.
func parseTime(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}

var errNoRecipients = errors.New("at least one recipient is required")
