package email

// Status is the persisted form of an outcome.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Outcome is the result of one send attempt. Exactly one of MessageID
// (success) or ErrorMessage (failure) is meaningful, selected by OK.
type Outcome struct {
	Recipient    string
	MessageID    string
	ErrorMessage string

	// Err keeps the classified cause of a failure for errors.Is checks.
	Err error

	ok bool
}

// Succeeded returns a successful outcome carrying the provider message id.
func Succeeded(messageID string) Outcome {
	return Outcome{MessageID: messageID, ok: true}
}

// Failed returns a failed outcome. err may be nil when only a message is known.
func Failed(message string, err error) Outcome {
	return Outcome{ErrorMessage: message, Err: err}
}

// For returns a copy of o bound to recipient.
func (o Outcome) For(recipient string) Outcome {
	o.Recipient = recipient
	return o
}

// OK reports whether the send was accepted by the provider.
func (o Outcome) OK() bool {
	return o.ok
}

// Status maps the outcome to its persisted status.
func (o Outcome) Status() Status {
	if o.ok {
		return StatusSent
	}
	return StatusFailed
}

// String renders the outcome for CLI output and logs.
func (o Outcome) String() string {
	if o.ok {
		return "Success{" + o.MessageID + "}"
	}
	return "Failure{" + o.ErrorMessage + "}"
}
