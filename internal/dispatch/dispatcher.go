// Package dispatch sends one message kind to a batch of guests and
// aggregates the per-guest outcomes.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/message"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/phone"
)

// Transport sends a single outbound WhatsApp message.
type Transport interface {
	SendMessage(ctx context.Context, toPhone, body string) error
	SendImageMessage(ctx context.Context, toPhone, body, imagePath string) error
}

// AuditLog records per-guest send outcomes for the owner.
type AuditLog interface {
	AddLog(ctx context.Context, ownerID, message string) error
}

type Dispatcher struct {
	transport Transport
	audit     AuditLog
	maxPerDay int
	log       zerolog.Logger
}

func NewDispatcher(transport Transport, audit AuditLog, maxPerDay int, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		audit:     audit,
		maxPerDay: maxPerDay,
		log:       log.With().Str("component", "dispatch").Logger(),
	}
}

// Send delivers the chosen message kind to every eligible guest in the
// batch. The whole batch is rejected up front when the wedding details are
// missing a field the template needs, or when the batch is larger than the
// daily quota. Individual transport failures never abort the rest of the
// batch; they are tallied into the result.
//
// All per-guest sends run concurrently and Send returns only after every
// one has finished, so the returned counts are exact. Sends already in
// flight keep going even if the caller's context is cancelled, and their
// outcomes are still logged.
func (d *Dispatcher) Send(ctx context.Context, ownerID string, guests []models.Guest, kind models.MessageKind, wedding models.WeddingDetails, customText string) (models.MessageBatchResult, error) {
	var result models.MessageBatchResult

	if err := message.Validate(kind, wedding, customText); err != nil {
		return result, err
	}
	if len(guests) > d.maxPerDay {
		return result, fmt.Errorf("%w: %d guests, quota %d", models.ErrQuotaExceeded, len(guests), d.maxPerDay)
	}

	eligible := Eligible(guests, kind)
	if len(eligible) == 0 {
		return result, nil
	}

	// Detached so abandoned HTTP callers don't cut off in-flight sends.
	sendCtx := context.WithoutCancel(ctx)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, g := range eligible {
		wg.Add(1)
		go func(g models.Guest) {
			defer wg.Done()
			err := d.sendOne(sendCtx, g, kind, wedding, customText)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Fail++
				result.Failures = append(result.Failures, models.SendFailure{
					GuestName: g.Name,
					Reason:    err.Error(),
				})
				d.logOutcome(sendCtx, ownerID, fmt.Sprintf("send %s to %s (%s) failed: %v", kind, g.Name, g.Phone, err))
			} else {
				result.Success++
				d.logOutcome(sendCtx, ownerID, fmt.Sprintf("sent %s to %s (%s)", kind, g.Name, g.Phone))
			}
		}(g)
	}
	wg.Wait()

	d.log.Info().
		Str("owner", ownerID).
		Str("kind", string(kind)).
		Int("success", result.Success).
		Int("fail", result.Fail).
		Msg("Batch dispatch finished")
	return result, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, g models.Guest, kind models.MessageKind, wedding models.WeddingDetails, customText string) error {
	canonical, err := phone.Normalize(g.Phone)
	if err != nil {
		return err
	}

	rendered := message.Render(kind, wedding, g, customText)
	if rendered.ImagePath != "" {
		return d.transport.SendImageMessage(ctx, canonical, rendered.Body, rendered.ImagePath)
	}
	return d.transport.SendMessage(ctx, canonical, rendered.Body)
}

func (d *Dispatcher) logOutcome(ctx context.Context, ownerID, msg string) {
	if err := d.audit.AddLog(ctx, ownerID, msg); err != nil {
		d.log.Error().Err(err).Msg("Failed to write audit log")
	}
}

// Eligible filters the batch down to the guests the kind targets: reminders
// go to guests who have not answered, wedding-day reminders to confirmed
// guests, everything else to the whole batch.
func Eligible(guests []models.Guest, kind models.MessageKind) []models.Guest {
	switch kind {
	case models.KindRSVPReminder:
		var out []models.Guest
		for _, g := range guests {
			if g.Pending() {
				out = append(out, g)
			}
		}
		return out
	case models.KindWeddingReminder:
		var out []models.Guest
		for _, g := range guests {
			if g.Confirmed() {
				out = append(out, g)
			}
		}
		return out
	default:
		return guests
	}
}
