// Package calendar turns structured event fields into iCalendar invites.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/shineum/ses-notify/internal/email"
)

const productID = "-//ses-notify//booking confirmation//EN"

// ContentType is the MIME type of generated invites.
const ContentType = "text/calendar; charset=UTF-8; method=REQUEST"

// Event holds the fields of a single calendar invite.
type Event struct {
	UID            string
	Summary        string
	Description    string
	Location       string
	Start          time.Time
	End            time.Time
	OrganizerName  string
	OrganizerEmail string
	AttendeeEmail  string
}

// Generator produces invite bytes for an event. A nil result with a nil
// error means the event had nothing to render.
type Generator interface {
	Generate(ev Event) ([]byte, error)
}

// ICS generates METHOD:REQUEST invites with a single VEVENT.
type ICS struct {
	// Now stamps DTSTAMP; defaults to time.Now.
	Now func() time.Time
}

// Generate renders ev. Events without a summary or start time yield no content.
func (g ICS) Generate(ev Event) ([]byte, error) {
	if strings.TrimSpace(ev.Summary) == "" || ev.Start.IsZero() {
		return nil, nil
	}

	end := ev.End
	if end.IsZero() {
		end = ev.Start.Add(time.Hour)
	}
	if end.Before(ev.Start) {
		return nil, fmt.Errorf("event ends before it starts: %s < %s", end, ev.Start)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	uid := ev.UID
	if uid == "" {
		uid = uuid.NewString()
	}

	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ics.MethodRequest)

	event := cal.AddEvent(uid)
	event.SetDtStampTime(now().UTC())
	event.SetStartAt(ev.Start.UTC())
	event.SetEndAt(end.UTC())
	event.SetSummary(ev.Summary)
	if ev.Description != "" {
		event.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		event.SetLocation(ev.Location)
	}
	if ev.OrganizerEmail != "" {
		var props []ics.PropertyParameter
		if ev.OrganizerName != "" {
			props = append(props, ics.WithCN(ev.OrganizerName))
		}
		event.SetOrganizer("mailto:"+ev.OrganizerEmail, props...)
	}
	if ev.AttendeeEmail != "" {
		event.AddAttendee("mailto:"+ev.AttendeeEmail,
			ics.CalendarUserTypeIndividual,
			ics.ParticipationStatusNeedsAction,
			ics.ParticipationRoleReqParticipant,
			ics.WithRSVP(true),
		)
	}

	return []byte(cal.Serialize()), nil
}

// Attachment generates an invite and wraps it as a named attachment. It
// returns nil when the generator yields no content or fails, so the caller
// can fall back to an HTML-only message.
func Attachment(gen Generator, ev Event, name string) (*email.Attachment, error) {
	content, err := gen.Generate(ev)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, nil
	}
	if !strings.HasSuffix(name, ".ics") {
		name += ".ics"
	}
	return &email.Attachment{
		Filename:    name,
		ContentType: ContentType,
		Content:     content,
	}, nil
}
