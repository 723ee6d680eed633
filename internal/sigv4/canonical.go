package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

const (
	// Algorithm is the SigV4 signing algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"

	// TimeFormat is the X-Amz-Date layout: YYYYMMDDTHHMMSSZ.
	TimeFormat = "20060102T150405Z"

	// ShortTimeFormat is the credential scope date layout: YYYYMMDD.
	ShortTimeFormat = "20060102"

	// ContentType is the only body encoding this package signs.
	ContentType = "application/x-www-form-urlencoded"

	// SignedHeaders lists the canonical header names, sorted and joined.
	SignedHeaders = "content-type;host;x-amz-date"

	scopeTerminator = "aws4_request"
)

// CanonicalRequest is the normalized form of a request that gets hashed into
// the string to sign. It lives only for one signing operation.
type CanonicalRequest struct {
	Method           string
	URIPath          string
	Host             string
	CanonicalHeaders string
	SignedHeaders    string
	PayloadHash      string
}

// BuildCanonicalRequest canonicalizes a form-encoded request. body must be
// the exact bytes that will be transmitted and t the same instant that will
// be sent in X-Amz-Date.
func BuildCanonicalRequest(method string, target *url.URL, body []byte, t time.Time) CanonicalRequest {
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	host := strings.ToLower(target.Host)

	var headers strings.Builder
	headers.WriteString("content-type:" + ContentType + "\n")
	headers.WriteString("host:" + host + "\n")
	headers.WriteString("x-amz-date:" + AmzDate(t) + "\n")

	return CanonicalRequest{
		Method:           strings.ToUpper(method),
		URIPath:          path,
		Host:             host,
		CanonicalHeaders: headers.String(),
		SignedHeaders:    SignedHeaders,
		PayloadHash:      hashHex(body),
	}
}

// String renders the canonical request. The query string line is always
// empty since every parameter travels in the body.
func (c CanonicalRequest) String() string {
	return strings.Join([]string{
		c.Method,
		c.URIPath,
		"",
		c.CanonicalHeaders,
		c.SignedHeaders,
		c.PayloadHash,
	}, "\n")
}

// Hash returns the lowercase hex SHA-256 of the canonical request.
func (c CanonicalRequest) Hash() string {
	return hashHex([]byte(c.String()))
}

// AmzDate formats t in UTC as YYYYMMDDTHHMMSSZ.
func AmzDate(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
