package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shineum/ses-notify/internal/calendar"
	"github.com/shineum/ses-notify/internal/delivery"
	"github.com/shineum/ses-notify/internal/email"
)

func newSendCmd(configPath *string) *cobra.Command {
	var (
		to         []string
		subject    string
		html       string
		htmlFile   string
		summary    string
		start      string
		end        string
		location   string
		inviteName string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one HTML email to each recipient",
		Long: `Send an HTML email to each recipient, one signed request per recipient.

An event summary and start time attach a calendar invite. One line is
printed per recipient; delivery failures do not change the exit status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(to) == 0 {
				return errNoRecipients
			}

			body := html
			if htmlFile != "" {
				data, err := os.ReadFile(htmlFile)
				if err != nil {
					return fmt.Errorf("failed to read HTML body: %w", err)
				}
				body = string(data)
			}

			startAt, err := parseTime("event-start", start)
			if err != nil {
				return err
			}
			endAt, err := parseTime("event-end", end)
			if err != nil {
				return err
			}

			a, err := loadApp(ctx, *configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			var attachment *email.Attachment
			if summary != "" {
				attachment, err = calendar.Attachment(calendar.ICS{}, calendar.Event{
					Summary:        summary,
					Location:       location,
					Start:          startAt,
					End:            endAt,
					OrganizerEmail: a.cfg.SES.Sender,
				}, inviteName)
				if err != nil {
					slog.Warn("calendar invite skipped", "error", err)
					attachment = nil
				}
			}

			outcomes := a.orchestrator.DeliverAll(ctx, delivery.Request{
				Recipients: to,
				Subject:    subject,
				HTMLBody:   body,
				Attachment: attachment,
			})
			a.record(ctx, subject, outcomes)
			printOutcomes(cmd.OutOrStdout(), outcomes)

			// Per-recipient failures keep exit status zero; missing
			// configuration does not.
			return a.orchestrator.Configured()
		},
	}

	cmd.Flags().StringArrayVar(&to, "to", nil, "recipient address (repeatable)")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject line")
	cmd.Flags().StringVar(&html, "html", "", "HTML body")
	cmd.Flags().StringVar(&htmlFile, "html-file", "", "read the HTML body from a file")
	cmd.Flags().StringVar(&summary, "event-summary", "", "attach a calendar invite with this summary")
	cmd.Flags().StringVar(&start, "event-start", "", "invite start time (RFC 3339)")
	cmd.Flags().StringVar(&end, "event-end", "", "invite end time (RFC 3339, default start + 1h)")
	cmd.Flags().StringVar(&location, "event-location", "", "invite location")
	cmd.Flags().StringVar(&inviteName, "invite-name", "invite", "attachment file name")
	cmd.MarkFlagsMutuallyExclusive("html", "html-file")

	return cmd
}
