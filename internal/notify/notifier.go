// Package notify holds the business call sites that send confirmation emails.
// Delivery problems never surface as errors: callers get one outcome per
// recipient and only rendering problems are returned.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shineum/ses-notify/internal/calendar"
	"github.com/shineum/ses-notify/internal/delivery"
	"github.com/shineum/ses-notify/internal/deliverylog"
	"github.com/shineum/ses-notify/internal/email"
)

const (
	orderTemplate   = "order_confirmation.md"
	bookingTemplate = "booking_confirmation.md"
)

// ErrMissingStart is returned for bookings without a start time.
var ErrMissingStart = errors.New("booking has no start time")

// Deliverer fans a request out to its recipients.
type Deliverer interface {
	DeliverAll(ctx context.Context, req delivery.Request) []email.Outcome
}

// OrderItem is one line of an order.
type OrderItem struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// Order is a placed order awaiting confirmation.
type Order struct {
	ID            string
	CustomerName  string
	CustomerEmail string
	Currency      string
	Items         []OrderItem
	// CC receives a copy, e.g. the shop's own inbox.
	CC []string
}

// Total sums quantity times unit price over all items.
func (o Order) Total() float64 {
	var total float64
	for _, item := range o.Items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

// Booking is a confirmed appointment.
type Booking struct {
	ID         string
	GuestName  string
	GuestEmail string
	Service    string
	Location   string
	Notes      string
	Start      time.Time
	End        time.Time
	CC         []string
}

// Notifier renders confirmation emails, delivers them and records the outcomes.
type Notifier struct {
	deliverer Deliverer
	renderer  *Renderer
	generator calendar.Generator
	recorder  deliverylog.Recorder
	log       *slog.Logger

	organizerName  string
	organizerEmail string
	loc            *time.Location
	now            func() time.Time
	newID          func() string
}

// Option customizes a Notifier.
type Option func(*Notifier)

// WithCalendar sets the generator used for booking invites.
func WithCalendar(gen calendar.Generator) Option {
	return func(n *Notifier) { n.generator = gen }
}

// WithRecorder sets where delivery log entries are written.
func WithRecorder(rec deliverylog.Recorder) Option {
	return func(n *Notifier) { n.recorder = rec }
}

// WithLogger sets the logger for recorder and calendar failures.
func WithLogger(log *slog.Logger) Option {
	return func(n *Notifier) { n.log = log }
}

// WithLocation sets the zone used to display booking times.
func WithLocation(loc *time.Location) Option {
	return func(n *Notifier) { n.loc = loc }
}

// WithOrganizer names the organizer on calendar invites.
func WithOrganizer(name, addr string) Option {
	return func(n *Notifier) {
		n.organizerName = name
		n.organizerEmail = addr
	}
}

// WithClock replaces time.Now for log entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// WithIDs replaces the log entry id generator.
func WithIDs(newID func() string) Option {
	return func(n *Notifier) { n.newID = newID }
}

// New creates a Notifier.
func New(deliverer Deliverer, renderer *Renderer, opts ...Option) *Notifier {
	n := &Notifier{
		deliverer: deliverer,
		renderer:  renderer,
		generator: calendar.ICS{},
		recorder:  deliverylog.NewLogger(nil),
		log:       slog.Default(),
		loc:       time.UTC,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type orderLine struct {
	Name     string
	Quantity int
	Price    string
}

type orderView struct {
	ID           string
	CustomerName string
	Items        []orderLine
	Total        string
}

type bookingView struct {
	ID        string
	GuestName string
	Service   string
	Date      string
	StartTime string
	EndTime   string
	Location  string
	Notes     string
	HasInvite bool
}

// OrderConfirmation emails the customer that their order was received.
func (n *Notifier) OrderConfirmation(ctx context.Context, order Order) ([]email.Outcome, error) {
	view := orderView{
		ID:           order.ID,
		CustomerName: order.CustomerName,
		Total:        money(order.Total(), order.Currency),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderLine{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    money(item.UnitPrice, order.Currency),
		})
	}

	rendered, err := n.renderer.Render(orderTemplate, view)
	if err != nil {
		return nil, err
	}

	return n.deliver(ctx, delivery.Request{
		Recipients: recipients(order.CustomerEmail, order.CC),
		Subject:    rendered.Subject,
		HTMLBody:   rendered.HTML,
	}), nil
}

// BookingConfirmation emails the guest a confirmation with a calendar invite.
// The invite is dropped when it cannot be generated.
func (n *Notifier) BookingConfirmation(ctx context.Context, booking Booking) ([]email.Outcome, error) {
	if booking.Start.IsZero() {
		return nil, fmt.Errorf("booking %s: %w", booking.ID, ErrMissingStart)
	}
	if booking.End.IsZero() {
		booking.End = booking.Start.Add(time.Hour)
	}

	attachment, err := calendar.Attachment(n.generator, calendar.Event{
		UID:            booking.ID,
		Summary:        booking.Service,
		Description:    booking.Notes,
		Location:       booking.Location,
		Start:          booking.Start,
		End:            booking.End,
		OrganizerName:  n.organizerName,
		OrganizerEmail: n.organizerEmail,
		AttendeeEmail:  booking.GuestEmail,
	}, "booking-"+booking.ID)
	if err != nil {
		n.log.WarnContext(ctx, "calendar invite skipped", "booking", booking.ID, "error", err)
		attachment = nil
	}

	start := booking.Start.In(n.loc)
	end := booking.End.In(n.loc)

	rendered, err := n.renderer.Render(bookingTemplate, bookingView{
		ID:        booking.ID,
		GuestName: booking.GuestName,
		Service:   booking.Service,
		Date:      start.Format("Monday, 2 January 2006"),
		StartTime: start.Format("15:04"),
		EndTime:   end.Format("15:04 MST"),
		Location:  booking.Location,
		Notes:     booking.Notes,
		HasInvite: attachment != nil,
	})
	if err != nil {
		return nil, err
	}

	return n.deliver(ctx, delivery.Request{
		Recipients: recipients(booking.GuestEmail, booking.CC),
		Subject:    rendered.Subject,
		HTMLBody:   rendered.HTML,
		Attachment: attachment,
	}), nil
}

// deliver sends req and records one log entry per outcome.
func (n *Notifier) deliver(ctx context.Context, req delivery.Request) []email.Outcome {
	outcomes := n.deliverer.DeliverAll(ctx, req)

	for _, outcome := range outcomes {
		entry := email.NewLogEntry(n.newID(), req.Subject, outcome, n.now())
		if err := n.recorder.Record(ctx, entry); err != nil {
			n.log.ErrorContext(ctx, "failed to record delivery",
				"recipient", outcome.Recipient,
				"status", string(outcome.Status()),
				"error", err,
			)
		}
	}

	return outcomes
}

func recipients(primary string, cc []string) []string {
	out := make([]string, 0, len(cc)+1)
	if strings.TrimSpace(primary) != "" {
		out = append(out, primary)
	}
	for _, addr := range cc {
		if strings.TrimSpace(addr) != "" {
			out = append(out, addr)
		}
	}
	return out
}

func money(amount float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}
