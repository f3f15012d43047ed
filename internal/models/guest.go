package models

import "time"

// Guest represents a wedding guest on an owner's list.
// A guest is identified by (OwnerID, Phone, Name) within the owner's list.
type Guest struct {
	OwnerID        string `json:"owner_id"`
	Name           string `json:"name"`
	InvitationName string `json:"invitation_name,omitempty"`
	Phone          string `json:"phone"`
	Whose          string `json:"whose"`
	Circle         string `json:"circle,omitempty"`
	NumberOfGuests int    `json:"number_of_guests"`
	// RSVP is nil while the guest has not answered, 0 for a decline,
	// and a positive headcount for a confirmation.
	RSVP *int `json:"rsvp"`
	// MessageGroup is the send batch assigned by the group assigner,
	// nil until assignment runs.
	MessageGroup *int `json:"message_group"`
}

// Pending reports whether the guest has not answered yet.
func (g Guest) Pending() bool {
	return g.RSVP == nil
}

// Confirmed reports whether the guest confirmed with a positive headcount.
func (g Guest) Confirmed() bool {
	return g.RSVP != nil && *g.RSVP > 0
}

// DisplayName returns the name used in message bodies, preferring the
// invitation name when one was set.
func (g Guest) DisplayName() string {
	if g.InvitationName != "" {
		return g.InvitationName
	}
	return g.Name
}

// ReminderDay selects which day the wedding reminder goes out.
type ReminderDay string

const (
	ReminderDayBefore  ReminderDay = "day_before"
	ReminderWeddingDay ReminderDay = "wedding_day"
)

// WeddingDetails is the per-owner wedding record read by the template engine.
type WeddingDetails struct {
	OwnerID        string      `json:"owner_id"`
	BrideName      string      `json:"bride_name"`
	GroomName      string      `json:"groom_name"`
	Date           string      `json:"date"`
	Hour           string      `json:"hour"`
	Location       string      `json:"location"`
	WazeLink       string      `json:"waze_link"`
	PaymentLink    string      `json:"payment_link,omitempty"`
	AdditionalInfo string      `json:"additional_info,omitempty"`
	ReminderDay    ReminderDay `json:"reminder_day"`
	ReminderHour   string      `json:"reminder_hour,omitempty"`
	ImagePath      string      `json:"image_path,omitempty"`
}

// SendFailure records a single guest that could not be messaged.
type SendFailure struct {
	GuestName string `json:"guestName"`
	Reason    string `json:"reason"`
}

// MessageBatchResult aggregates the outcome of one dispatch call.
// It is returned to the caller and never persisted.
type MessageBatchResult struct {
	Success  int           `json:"success"`
	Fail     int           `json:"fail"`
	Failures []SendFailure `json:"failures"`
}

// ClientLog is an append-only audit entry for send outcomes and inbound
// reply processing.
type ClientLog struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
