// Package reply processes inbound WhatsApp messages from guests and applies
// the matching RSVP state transition.
package reply

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/phone"
)

// GuestStore is the storage surface the handler needs.
type GuestStore interface {
	FindGuestByPhone(ctx context.Context, canonicalPhone string) (*models.Guest, error)
	UpdateRSVP(ctx context.Context, ownerID, name, phoneNumber string, rsvp *int) error
	DeleteGuest(ctx context.Context, ownerID, name, phoneNumber string) error
}

// Sender sends the acknowledgement back to the guest.
type Sender interface {
	SendMessage(ctx context.Context, toPhone, body string) error
}

// AuditLog records what was done with each inbound reply.
type AuditLog interface {
	AddLog(ctx context.Context, ownerID, message string) error
}

// MaxHeadcount caps the numeric RSVP a guest may reply with.
const MaxHeadcount = 10

// Quick-reply button values from the invitation template, plus the
// free-typed cancellation keyword.
const (
	keywordMistake   = "טעות"
	keywordMistakeEn = "mistake"
	replyDecline     = "לא נגיע"
	replyWillAnswer  = "אענה בהמשך"
	replyDeciding    = "עדיין מתלבטים"
)

const (
	ackConfirmed     = "מעולה, רשמנו %d מגיעים! 🎉 נתראה בחתונה!"
	ackDeclined      = "רשמנו שלא תגיעו. תודה שעדכנתם, נתגעגע! 💕"
	ackDeleted       = "אין בעיה, הסרנו אתכם מרשימת המוזמנים. אם זו הייתה טעות, בקשו מבעלי השמחה להוסיף אתכם שוב."
	promptWillAnswer = "בסדר גמור! נשמח שתעדכנו כשתדעו, פשוט השיבו עם מספר המגיעים 🙏"
	promptDeciding   = "קחו את הזמן! כשתחליטו, השיבו עם מספר המגיעים (0 אם לא תגיעו)."
	promptFallback   = "לא הצלחנו להבין את התשובה 🙈 אנא השיבו עם מספר המגיעים בלבד (0 אם לא תגיעו)."
)

type Handler struct {
	store  GuestStore
	sender Sender
	audit  AuditLog
	log    zerolog.Logger
}

func NewHandler(store GuestStore, sender Sender, audit AuditLog, log zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		sender: sender,
		audit:  audit,
		log:    log.With().Str("component", "reply").Logger(),
	}
}

// Handle processes one inbound message. Unknown senders are logged and
// dropped; nothing is ever surfaced back to the guest beyond the designed
// acknowledgement texts. The returned error is for the caller's log only —
// the webhook endpoint acknowledges the transport regardless.
func (h *Handler) Handle(ctx context.Context, fromPhone, rawBody string) error {
	canonical, err := phone.Normalize(fromPhone)
	if err != nil {
		h.log.Warn().Str("from", fromPhone).Msg("Inbound reply from unparseable number, dropping")
		return nil
	}

	guest, err := h.store.FindGuestByPhone(ctx, canonical)
	if errors.Is(err, models.ErrGuestNotFound) {
		h.log.Info().Str("from", canonical).Msg("Inbound reply from unknown number, dropping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up sender: %w", err)
	}

	body := strings.TrimSpace(rawBody)
	switch {
	case body == keywordMistake || strings.EqualFold(body, keywordMistakeEn):
		return h.handleMistake(ctx, guest)
	case body == replyDecline:
		return h.applyRSVP(ctx, guest, 0)
	case body == replyWillAnswer:
		return h.sendAndLog(ctx, guest, promptWillAnswer, "guest will answer later")
	case body == replyDeciding:
		return h.sendAndLog(ctx, guest, promptDeciding, "guest still deciding")
	}

	if n, err := strconv.Atoi(body); err == nil && n >= 0 && n <= MaxHeadcount {
		return h.applyRSVP(ctx, guest, n)
	}

	return h.sendAndLog(ctx, guest, promptFallback, fmt.Sprintf("unrecognized reply %q", body))
}

// handleMistake deletes the guest entirely. Terminal for that guest; only a
// manual re-add brings them back.
func (h *Handler) handleMistake(ctx context.Context, guest *models.Guest) error {
	if err := h.store.DeleteGuest(ctx, guest.OwnerID, guest.Name, guest.Phone); err != nil {
		return fmt.Errorf("failed to delete guest after mistake reply: %w", err)
	}
	h.logReply(ctx, guest, "guest removed after mistake reply")
	if err := h.sender.SendMessage(ctx, guest.Phone, ackDeleted); err != nil {
		return fmt.Errorf("failed to send removal confirmation: %w", err)
	}
	return nil
}

// applyRSVP overwrites the guest's answer; replies are last-write-wins.
func (h *Handler) applyRSVP(ctx context.Context, guest *models.Guest, headcount int) error {
	if err := h.store.UpdateRSVP(ctx, guest.OwnerID, guest.Name, guest.Phone, &headcount); err != nil {
		return fmt.Errorf("failed to update rsvp: %w", err)
	}

	ack := ackDeclined
	note := "guest declined"
	if headcount > 0 {
		ack = fmt.Sprintf(ackConfirmed, headcount)
		note = fmt.Sprintf("guest confirmed %d attendees", headcount)
	}
	h.logReply(ctx, guest, note)

	if err := h.sender.SendMessage(ctx, guest.Phone, ack); err != nil {
		return fmt.Errorf("failed to send acknowledgement: %w", err)
	}
	return nil
}

func (h *Handler) sendAndLog(ctx context.Context, guest *models.Guest, body, note string) error {
	h.logReply(ctx, guest, note)
	if err := h.sender.SendMessage(ctx, guest.Phone, body); err != nil {
		return fmt.Errorf("failed to send prompt: %w", err)
	}
	return nil
}

func (h *Handler) logReply(ctx context.Context, guest *models.Guest, note string) {
	if err := h.audit.AddLog(ctx, guest.OwnerID, fmt.Sprintf("%s (%s): %s", guest.Name, guest.Phone, note)); err != nil {
		h.log.Error().Err(err).Msg("Failed to write audit log")
	}
}
