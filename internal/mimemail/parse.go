package mimemail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/shineum/ses-notify/internal/email"
)

// ErrMissingBoundary is returned for multipart documents without a boundary.
var ErrMissingBoundary = errors.New("multipart message missing boundary")

// Parse reads a raw RFC 5322 document back into a Message. Only the first
// recipient, the first HTML part and the first attachment are kept, which is
// the shape Build produces.
func Parse(raw []byte) (*email.Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}

	result := &email.Message{
		From:    msg.Header.Get("From"),
		To:      firstAddress(msg.Header.Get("To")),
		Subject: subject,
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content type %q: %w", contentType, err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read message body: %w", err)
		}
		if mediaType == "text/html" {
			result.HTMLBody = string(body)
		}
		return result, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, ErrMissingBoundary
	}
	if err := parseMultipart(msg.Body, boundary, result); err != nil {
		return nil, fmt.Errorf("failed to parse multipart message: %w", err)
	}

	return result, nil
}

// parseMultipart fills the HTML body and attachment of result.
func parseMultipart(body io.Reader, boundary string, result *email.Message) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		mediaType, _, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			return fmt.Errorf("failed to read %s part: %w", mediaType, err)
		}

		isAttachment := strings.HasPrefix(part.Header.Get("Content-Disposition"), "attachment")
		switch {
		case isAttachment && result.Attachment == nil:
			result.Attachment = &email.Attachment{
				Filename:    part.FileName(),
				ContentType: partContentType,
				Content:     content,
			}
		case mediaType == "text/html" && result.HTMLBody == "":
			result.HTMLBody = string(content)
		default:
			slog.Warn("unexpected MIME part, skipping", "content_type", mediaType)
		}
	}
}

// readPartContent reads a part, decoding base64 transfer encoding.
func readPartContent(part *multipart.Part) ([]byte, error) {
	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	encoding := strings.ToLower(strings.TrimSpace(part.Header.Get("Content-Transfer-Encoding")))
	if encoding != "base64" {
		return raw, nil
	}

	cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 content: %w", err)
	}
	return decoded, nil
}

// firstAddress returns the bare address of the first entry in a To header.
func firstAddress(raw string) string {
	addrs, err := mail.ParseAddressList(raw)
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(raw)
	}
	return addrs[0].Address
}
