package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/shineum/ses-notify/internal/provider/ses"
	"github.com/shineum/ses-notify/internal/sigv4"
)

func newSignCmd(configPath *string) *cobra.Command {
	var (
		body     string
		at       string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the canonical request and signature for a body",
		Long: `Print the canonical request, string to sign and Authorization header
that would be sent for a form body. Nothing is sent and the secret key is
never printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTime("time", at)
			if err != nil {
				return err
			}
			if t.IsZero() {
				t = time.Now()
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			setupLogger(cfg.Logging.Level)

			creds, err := cfg.SigningCredentials(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to resolve signing credentials: %w", err)
			}

			if endpoint == "" {
				endpoint = cfg.SES.Endpoint
			}
			if endpoint == "" {
				endpoint = ses.Endpoint(creds.Region)
			}
			target, err := url.Parse(endpoint)
			if err != nil {
				return fmt.Errorf("invalid endpoint: %w", err)
			}

			cr := sigv4.BuildCanonicalRequest("POST", target, []byte(body), t)
			sig, err := sigv4.Sign(cr, creds, t)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Canonical request:\n%s\n\n", cr)
			fmt.Fprintf(out, "String to sign:\n%s\n\n", sig.StringToSign)
			fmt.Fprintf(out, "X-Amz-Date: %s\n", sig.AmzDate)
			fmt.Fprintf(out, "Authorization: %s\n", sig.Authorization)
			return nil
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "form-encoded request body")
	cmd.Flags().StringVar(&at, "time", "", "signing time (RFC 3339, default now)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "endpoint URL (default from configuration)")

	return cmd
}
