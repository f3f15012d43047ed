package models

import "fmt"

// MessageKind is the closed set of outbound message categories.
type MessageKind string

const (
	KindRSVPInvite      MessageKind = "rsvp_invite"
	KindRSVPReminder    MessageKind = "rsvp_reminder"
	KindWeddingReminder MessageKind = "wedding_reminder"
	KindThankYou        MessageKind = "thank_you"
	KindFreeText        MessageKind = "free_text"
)

// ParseMessageKind validates an API-supplied kind string. Unknown kinds are
// rejected here so they cannot fall through to a default template.
func ParseMessageKind(s string) (MessageKind, error) {
	switch k := MessageKind(s); k {
	case KindRSVPInvite, KindRSVPReminder, KindWeddingReminder, KindThankYou, KindFreeText:
		return k, nil
	}
	return "", fmt.Errorf("unknown message kind %q", s)
}

// RenderedMessage is the output of the template engine: a message body and,
// for invitations, the invitation image to attach.
type RenderedMessage struct {
	Body      string
	ImagePath string
}
