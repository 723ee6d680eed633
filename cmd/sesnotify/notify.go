package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shineum/ses-notify/internal/email"
	"github.com/shineum/ses-notify/internal/notify"
)

func newNotifyCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a templated confirmation email",
	}

	cmd.AddCommand(newNotifyOrderCmd(configPath))
	cmd.AddCommand(newNotifyBookingCmd(configPath))

	return cmd
}

// withNotifier wires a Notifier from configuration, runs fn and prints the
// outcomes.
func withNotifier(cmd *cobra.Command, configPath string, fn func(context.Context, *notify.Notifier) ([]email.Outcome, error)) error {
	ctx := cmd.Context()

	a, err := loadApp(ctx, configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	renderer, err := notify.NewRenderer()
	if err != nil {
		return err
	}

	n := notify.New(a.orchestrator, renderer,
		notify.WithRecorder(a.recorder),
		notify.WithLocation(loc),
		notify.WithOrganizer(a.cfg.Notify.OrganizerName, a.cfg.SES.Sender),
	)

	outcomes, err := fn(ctx, n)
	if err != nil {
		return err
	}
	printOutcomes(cmd.OutOrStdout(), outcomes)

	return a.orchestrator.Configured()
}

func newNotifyOrderCmd(configPath *string) *cobra.Command {
	var (
		order notify.Order
		items []string
	)

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Send an order confirmation",
		Example: `  sesnotify notify order --id ORD-1001 --name Ada --email ada@example.com \
    --item "Espresso beans:2:12.50" --item "Grinder:1:80" --currency EUR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if order.CustomerEmail == "" {
				return errNoRecipients
			}
			for _, raw := range items {
				item, err := parseItem(raw)
				if err != nil {
					return err
				}
				order.Items = append(order.Items, item)
			}

			return withNotifier(cmd, *configPath, func(ctx context.Context, n *notify.Notifier) ([]email.Outcome, error) {
				return n.OrderConfirmation(ctx, order)
			})
		},
	}

	cmd.Flags().StringVar(&order.ID, "id", "", "order id")
	cmd.Flags().StringVar(&order.CustomerName, "name", "", "customer name")
	cmd.Flags().StringVar(&order.CustomerEmail, "email", "", "customer email address")
	cmd.Flags().StringVar(&order.Currency, "currency", "", "currency code shown next to prices")
	cmd.Flags().StringArrayVar(&items, "item", nil, "order line as name:quantity:unit_price (repeatable)")
	cmd.Flags().StringArrayVar(&order.CC, "cc", nil, "additional recipient (repeatable)")

	return cmd
}

func newNotifyBookingCmd(configPath *string) *cobra.Command {
	var (
		booking notify.Booking
		start   string
		end     string
	)

	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Send a booking confirmation with a calendar invite",
		Example: `  sesnotify notify booking --id BK-7 --name Grace --email grace@example.com \
    --service Haircut --start 2026-06-12T15:00:00Z --location "Main Street 1"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if booking.GuestEmail == "" {
				return errNoRecipients
			}

			var err error
			if booking.Start, err = parseTime("start", start); err != nil {
				return err
			}
			if booking.End, err = parseTime("end", end); err != nil {
				return err
			}

			return withNotifier(cmd, *configPath, func(ctx context.Context, n *notify.Notifier) ([]email.Outcome, error) {
				return n.BookingConfirmation(ctx, booking)
			})
		},
	}

	cmd.Flags().StringVar(&booking.ID, "id", "", "booking id")
	cmd.Flags().StringVar(&booking.GuestName, "name", "", "guest name")
	cmd.Flags().StringVar(&booking.GuestEmail, "email", "", "guest email address")
	cmd.Flags().StringVar(&booking.Service, "service", "", "booked service")
	cmd.Flags().StringVar(&booking.Location, "location", "", "where the booking takes place")
	cmd.Flags().StringVar(&booking.Notes, "notes", "", "note shown in the email and invite")
	cmd.Flags().StringVar(&start, "start", "", "start time (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "end time (RFC 3339, default start + 1h)")
	cmd.Flags().StringArrayVar(&booking.CC, "cc", nil, "additional recipient (repeatable)")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

// parseItem reads name:quantity:unit_price. The name may contain colons.
func parseItem(raw string) (notify.OrderItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return notify.OrderItem{}, fmt.Errorf("invalid item %q: want name:quantity:unit_price", raw)
	}

	n := len(parts)
	qty, err := strconv.Atoi(strings.TrimSpace(parts[n-2]))
	if err != nil || qty < 0 {
		return notify.OrderItem{}, fmt.Errorf("invalid quantity in item %q", raw)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(parts[n-1]), 64)
	if err != nil || price < 0 {
		return notify.OrderItem{}, fmt.Errorf("invalid price in item %q", raw)
	}

	return notify.OrderItem{
		Name:      strings.Join(parts[:n-2], ":"),
		Quantity:  qty,
		UnitPrice: price,
	}, nil
}
