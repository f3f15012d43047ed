// Package message renders the outbound WhatsApp message bodies for each
// message kind from the owner's wedding details.
package message

import (
	"fmt"
	"strings"

	"wedding-rsvp/internal/models"
)

// Render builds the message body (and invitation image, for invites) for one
// guest. Empty wedding fields render as human-readable placeholders such as
// {{bride_name}} so operators can preview incomplete templates; dispatch
// rejects actually sending them (see Validate).
func Render(kind models.MessageKind, wedding models.WeddingDetails, guest models.Guest, customText string) models.RenderedMessage {
	switch kind {
	case models.KindRSVPInvite:
		return models.RenderedMessage{
			Body:      renderInvite(wedding, guest),
			ImagePath: wedding.ImagePath,
		}
	case models.KindRSVPReminder:
		return models.RenderedMessage{Body: renderRSVPReminder(wedding, guest)}
	case models.KindWeddingReminder:
		return models.RenderedMessage{Body: renderWeddingReminder(wedding, guest)}
	case models.KindThankYou:
		return models.RenderedMessage{Body: renderThankYou(wedding, guest)}
	case models.KindFreeText:
		return models.RenderedMessage{Body: customText}
	}
	// ParseMessageKind guards the API boundary; an unknown kind here is a
	// programming error.
	panic(fmt.Sprintf("unknown message kind %q", kind))
}

// Validate reports whether the wedding details carry every field the chosen
// kind's template interpolates. Dispatch calls this before sending and
// refuses the whole batch on failure.
func Validate(kind models.MessageKind, wedding models.WeddingDetails, customText string) error {
	missing := MissingFields(kind, wedding, customText)
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing %s", models.ErrIncompleteDetails, strings.Join(missing, ", "))
}

// MissingFields lists the empty wedding fields required by kind.
func MissingFields(kind models.MessageKind, wedding models.WeddingDetails, customText string) []string {
	if kind == models.KindFreeText {
		if strings.TrimSpace(customText) == "" {
			return []string{"custom_text"}
		}
		return nil
	}

	required := []struct{ name, value string }{
		{"bride_name", wedding.BrideName},
		{"groom_name", wedding.GroomName},
		{"date", wedding.Date},
		{"hour", wedding.Hour},
		{"location", wedding.Location},
		{"waze_link", wedding.WazeLink},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if kind == models.KindRSVPInvite && strings.TrimSpace(wedding.ImagePath) == "" {
		missing = append(missing, "invitation_image")
	}
	return missing
}

func renderInvite(w models.WeddingDetails, g models.Guest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "היי %s! 💍\n\n", guestName(g))
	fmt.Fprintf(&b, "הוזמנתם לחתונה של %s ו%s!\n\n", orPlaceholder(w.BrideName, "bride_name"), orPlaceholder(w.GroomName, "groom_name"))
	fmt.Fprintf(&b, "📅 %s בשעה %s\n", orPlaceholder(w.Date, "date"), orPlaceholder(w.Hour, "hour"))
	fmt.Fprintf(&b, "📍 %s\n", orPlaceholder(w.Location, "location"))
	fmt.Fprintf(&b, "🚗 ניווט: %s\n\n", orPlaceholder(w.WazeLink, "waze_link"))
	b.WriteString("נשמח לדעת אם תגיעו 🙏\nאנא השיבו עם מספר המגיעים (0 אם לא תוכלו להגיע).")
	appendAdditionalInfo(&b, w.AdditionalInfo)
	return b.String()
}

func renderRSVPReminder(w models.WeddingDetails, g models.Guest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "היי %s,\n\n", guestName(g))
	fmt.Fprintf(&b, "עדיין לא קיבלנו מכם תשובה לחתונה של %s ו%s ✨\n", orPlaceholder(w.BrideName, "bride_name"), orPlaceholder(w.GroomName, "groom_name"))
	fmt.Fprintf(&b, "📅 %s בשעה %s, %s\n\n", orPlaceholder(w.Date, "date"), orPlaceholder(w.Hour, "hour"), orPlaceholder(w.Location, "location"))
	b.WriteString("אנא השיבו עם מספר המגיעים (0 אם לא תוכלו להגיע). תודה! 💕")
	appendAdditionalInfo(&b, w.AdditionalInfo)
	return b.String()
}

func renderWeddingReminder(w models.WeddingDetails, g models.Guest) string {
	opening := "מחר מתחתנים! 🎉"
	if w.ReminderDay == models.ReminderWeddingDay {
		opening = "היום מתחתנים! 🎉"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "היי %s, %s\n\n", guestName(g), opening)
	fmt.Fprintf(&b, "מחכים לכם בחתונה של %s ו%s\n", orPlaceholder(w.BrideName, "bride_name"), orPlaceholder(w.GroomName, "groom_name"))
	fmt.Fprintf(&b, "🕖 בשעה %s\n", orPlaceholder(w.Hour, "hour"))
	fmt.Fprintf(&b, "📍 %s\n", orPlaceholder(w.Location, "location"))
	fmt.Fprintf(&b, "🚗 ניווט: %s", orPlaceholder(w.WazeLink, "waze_link"))
	appendAdditionalInfo(&b, w.AdditionalInfo)
	return b.String()
}

func renderThankYou(w models.WeddingDetails, g models.Guest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "היי %s! 💕\n\n", guestName(g))
	fmt.Fprintf(&b, "תודה ענקית שחגגתם איתנו את החתונה של %s ו%s!\n", orPlaceholder(w.BrideName, "bride_name"), orPlaceholder(w.GroomName, "groom_name"))
	b.WriteString("היה לנו ערב בלתי נשכח בזכותכם 🥂")
	if strings.TrimSpace(w.PaymentLink) != "" {
		fmt.Fprintf(&b, "\n\n💝 למי שנוח: %s", w.PaymentLink)
	}
	appendAdditionalInfo(&b, w.AdditionalInfo)
	return b.String()
}

func guestName(g models.Guest) string {
	if name := g.DisplayName(); name != "" {
		return name
	}
	return "{{guest_name}}"
}

func orPlaceholder(value, field string) string {
	if strings.TrimSpace(value) == "" {
		return "{{" + field + "}}"
	}
	return value
}

func appendAdditionalInfo(b *strings.Builder, info string) {
	if strings.TrimSpace(info) != "" {
		b.WriteString("\n\n")
		b.WriteString(info)
	}
}
