package mimemail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/ses-notify/internal/email"
)

func TestParse_RoundTripsBuild(t *testing.T) {
	t.Parallel()

	in := bookingMessage()
	msg, err := Builder{}.Build(in)
	require.NoError(t, err)

	out, err := Parse(msg.Bytes())
	require.NoError(t, err)

	assert.Equal(t, in.From, out.From)
	assert.Equal(t, in.To, out.To)
	assert.Equal(t, in.Subject, out.Subject)
	assert.Equal(t, in.HTMLBody, out.HTMLBody)
	require.NotNil(t, out.Attachment)
	assert.Equal(t, &email.Attachment{
		Filename:    "booking.ics",
		ContentType: CalendarContentType,
		Content:     []byte(invite),
	}, out.Attachment)
}

func TestParse_HTMLOnly(t *testing.T) {
	t.Parallel()

	in := bookingMessage()
	in.Attachment = nil
	in.Subject = "Bestätigung für Zoë"

	msg, err := Builder{}.Build(in)
	require.NoError(t, err)

	out, err := Parse(msg.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "Bestätigung für Zoë", out.Subject)
	assert.Equal(t, "<h1>See you soon</h1>", out.HTMLBody)
	assert.Nil(t, out.Attachment)
}

func TestParse_SinglePartHTML(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: shop@example.com",
		"To: Ada Lovelace <ada@example.com>, bob@example.com",
		"Subject: Plain",
		"Content-Type: text/html; charset=UTF-8",
		"",
		"<p>Hi</p>",
	}, "\r\n"))

	out, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", out.To)
	assert.Equal(t, "<p>Hi</p>", out.HTMLBody)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("not a message"))
	require.Error(t, err)

	raw := []byte("From: a@example.com\r\nContent-Type: multipart/mixed\r\n\r\nbody")
	_, err = Parse(raw)
	require.ErrorIs(t, err, ErrMissingBoundary)

	raw = []byte(strings.Join([]string{
		"Content-Type: multipart/mixed; boundary=\"b1\"",
		"",
		"--b1",
		"Content-Type: text/calendar",
		"Content-Transfer-Encoding: base64",
		"Content-Disposition: attachment; filename=\"x.ics\"",
		"",
		"!!!not base64!!!",
		"--b1--",
		"",
	}, "\r\n"))
	_, err = Parse(raw)
	require.Error(t, err)
}
