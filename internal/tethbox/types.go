package tethbox

import "time"

// Account is the server-issued disposable mailbox identity
type Account struct {
	Email string `json:"email"`
	// ExpireIn is the number of seconds left at the moment of the last server response
	ExpireIn int `json:"expireIn"`
}

// Attachment describes a file attached to a message
type Attachment struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url,omitempty"`
}

// Message is an inbox entry. Summary fields are always present; HTML and
// Attachments are only populated once the detail has been fetched.
type Message struct {
	Key           string `json:"key"`
	SenderAddress string `json:"sender_address"`
	SenderName    string `json:"sender_name,omitempty"`
	Subject       string `json:"subject,omitempty"`
	Date          int64  `json:"date"`
	Read          bool   `json:"read"`

	HTML        string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Fetched marks a cached summary that already carries its detail
	Fetched bool `json:"-"`
}

// Sender returns the display name when known, the address otherwise
func (m Message) Sender() string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderAddress
}

// Time converts the unix timestamp to a time.Time in local time
func (m Message) Time() time.Time {
	return time.Unix(m.Date, 0)
}

// Clone returns a deep copy so callers never share the attachments slice
func (m Message) Clone() Message {
	if m.Attachments != nil {
		atts := make([]Attachment, len(m.Attachments))
		copy(atts, m.Attachments)
		m.Attachments = atts
	}
	return m
}

// Inbox is the poll response
type Inbox struct {
	Account  Account   `json:"account"`
	Messages []Message `json:"messages"`
}

type accountEnvelope struct {
	Account *Account `json:"account"`
}

type messageEnvelope struct {
	Message *Message `json:"message"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}
