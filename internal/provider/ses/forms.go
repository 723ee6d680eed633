package ses

import (
	"net/url"
	"strconv"
)

// APIVersion is the query API version sent with every action.
const APIVersion = "2010-12-01"

// SimpleEmailForm builds the SendEmail body: subject and HTML body as
// separate fields, one Destination.ToAddresses.member.N per recipient.
func SimpleEmailForm(from string, to []string, subject, html string) url.Values {
	form := url.Values{}
	form.Set("Action", "SendEmail")
	form.Set("Version", APIVersion)
	form.Set("Source", from)
	for i, addr := range to {
		form.Set("Destination.ToAddresses.member."+strconv.Itoa(i+1), addr)
	}
	form.Set("Message.Subject.Data", subject)
	form.Set("Message.Subject.Charset", "UTF-8")
	form.Set("Message.Body.Html.Data", html)
	form.Set("Message.Body.Html.Charset", "UTF-8")
	return form
}

// RawEmailForm builds the SendRawEmail body around an already
// base64-encoded MIME document.
func RawEmailForm(rawBase64 string) url.Values {
	form := url.Values{}
	form.Set("Action", "SendRawEmail")
	form.Set("Version", APIVersion)
	form.Set("RawMessage.Data", rawBase64)
	return form
}
