// Package mimemail composes raw multipart/mixed email documents.
//
// A message is held as a small structure of ordered headers and parts and
// serialized in one place, so the wire format can be tested apart from the
// business content that fills it.
package mimemail

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/ses-notify/internal/email"
)

const (
	// BoundaryPrefix starts every generated boundary token.
	BoundaryPrefix = "=_sesnotify_"

	// CalendarContentType is used for calendar invites when the attachment
	// does not carry its own type.
	CalendarContentType = "text/calendar; charset=UTF-8; method=REQUEST"

	htmlContentType = "text/html; charset=UTF-8"

	// lineLength is the RFC 2045 maximum for base64 lines.
	lineLength = 76

	maxBoundaryAttempts = 8
)

// ErrBoundaryCollision is returned when no generated boundary avoided the content.
var ErrBoundaryCollision = errors.New("could not generate a boundary absent from the message content")

// Header is one message header. Order is preserved on output.
type Header struct {
	Name  string
	Value string
}

// Part is one body part of a multipart message.
type Part struct {
	ContentType string
	Encoding    string
	Disposition string
	Body        []byte
}

// Message is a composed multipart/mixed document.
type Message struct {
	Headers  []Header
	Boundary string
	Parts    []Part
}

// Builder composes messages. The zero value uses random uuid-based boundaries.
type Builder struct {
	// NewBoundary overrides boundary generation.
	NewBoundary func() string
}

// Build composes msg into a multipart document: the HTML part always, plus a
// base64 attachment part when msg carries non-empty attachment content.
func (b Builder) Build(msg email.Message) (*Message, error) {
	parts := []Part{{
		ContentType: htmlContentType,
		Encoding:    "7bit",
		Body:        []byte(msg.HTMLBody),
	}}

	if att := msg.Attachment; att != nil && len(att.Content) > 0 {
		contentType := att.ContentType
		if contentType == "" {
			contentType = CalendarContentType
		}
		parts = append(parts, Part{
			ContentType: contentType,
			Encoding:    "base64",
			Disposition: fmt.Sprintf("attachment; filename=%q", sanitize(att.Filename)),
			Body:        []byte(EncodeBase64Lines(att.Content)),
		})
	}

	boundary, err := b.boundaryFor(parts)
	if err != nil {
		return nil, err
	}

	return &Message{
		Headers: []Header{
			{Name: "From", Value: sanitize(msg.From)},
			{Name: "To", Value: sanitize(msg.To)},
			{Name: "Subject", Value: mime.BEncoding.Encode("UTF-8", sanitize(msg.Subject))},
			{Name: "MIME-Version", Value: "1.0"},
			{Name: "Content-Type", Value: fmt.Sprintf("multipart/mixed; boundary=%q", boundary)},
		},
		Boundary: boundary,
		Parts:    parts,
	}, nil
}

// boundaryFor returns a boundary that appears in none of the part bodies.
func (b Builder) boundaryFor(parts []Part) (string, error) {
	gen := b.NewBoundary
	if gen == nil {
		gen = NewBoundary
	}

	for i := 0; i < maxBoundaryAttempts; i++ {
		boundary := gen()
		if !collides(boundary, parts) {
			return boundary, nil
		}
	}
	return "", ErrBoundaryCollision
}

func collides(boundary string, parts []Part) bool {
	for _, p := range parts {
		if bytes.Contains(p.Body, []byte(boundary)) {
			return true
		}
	}
	return false
}

// NewBoundary returns the fixed prefix followed by 128 random bits in hex.
func NewBoundary() string {
	id := uuid.New()
	return BoundaryPrefix + hex.EncodeToString(id[:])
}

// Bytes serializes the message with CRLF line endings.
func (m *Message) Bytes() []byte {
	var buf bytes.Buffer

	for _, h := range m.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	buf.WriteString("\r\n")

	for _, p := range m.Parts {
		fmt.Fprintf(&buf, "--%s\r\n", m.Boundary)
		fmt.Fprintf(&buf, "Content-Type: %s\r\n", p.ContentType)
		fmt.Fprintf(&buf, "Content-Transfer-Encoding: %s\r\n", p.Encoding)
		if p.Disposition != "" {
			fmt.Fprintf(&buf, "Content-Disposition: %s\r\n", p.Disposition)
		}
		buf.WriteString("\r\n")
		buf.Write(crlf(p.Body))
		buf.WriteString("\r\n")
	}

	fmt.Fprintf(&buf, "--%s--\r\n", m.Boundary)
	return buf.Bytes()
}

// Encode returns the whole serialized document base64-encoded once more, the
// form carried in RawMessage.Data.
func (m *Message) Encode() string {
	return base64.StdEncoding.EncodeToString(m.Bytes())
}

// HasAttachment reports whether the message carries a part beyond the HTML body.
func (m *Message) HasAttachment() bool {
	return len(m.Parts) > 1
}

// Header returns the first header value with the given name.
func (m *Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// EncodeBase64Lines encodes data as base64 wrapped at 76 characters with CRLF.
func EncodeBase64Lines(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += lineLength {
		end := min(i+lineLength, len(encoded))
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}

// crlf rewrites bare CR and LF line breaks as CRLF.
func crlf(body []byte) []byte {
	body = bytes.ReplaceAll(body, []byte("\r\n"), []byte("\n"))
	body = bytes.ReplaceAll(body, []byte("\r"), []byte("\n"))
	return bytes.ReplaceAll(body, []byte("\n"), []byte("\r\n"))
}

// sanitize strips CR and LF so a value cannot start a new header line.
func sanitize(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
