package ses

// sendResponse matches both SendEmailResponse and SendRawEmailResponse.
type sendResponse struct {
	SendEmailResult    sendResult `xml:"SendEmailResult"`
	SendRawEmailResult sendResult `xml:"SendRawEmailResult"`
	RequestID          string     `xml:"ResponseMetadata>RequestId"`
}

type sendResult struct {
	MessageID string `xml:"MessageId"`
}

func (r sendResponse) messageID() string {
	if r.SendEmailResult.MessageID != "" {
		return r.SendEmailResult.MessageID
	}
	return r.SendRawEmailResult.MessageID
}

// errorResponse is the query API fault body.
type errorResponse struct {
	Error struct {
		Type    string `xml:"Type"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
	RequestID string `xml:"RequestId"`
}
