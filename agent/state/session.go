package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

// DialogState is the position of a conversation in the location -> date -> crop flow.
type DialogState string

const (
	AwaitingLocation DialogState = "AWAITING_LOCATION"
	AwaitingDate     DialogState = "AWAITING_DATE"
	AwaitingCrop     DialogState = "AWAITING_CROP"
	Complete         DialogState = "COMPLETE"
	Cancelled        DialogState = "CANCELLED"
)

func (s DialogState) IsTerminal() bool {
	return s == Complete || s == Cancelled
}

func (s DialogState) Valid() bool {
	switch s {
	case AwaitingLocation, AwaitingDate, AwaitingCrop, Complete, Cancelled:
		return true
	default:
		return false
	}
}

// Session is the per-conversation record. Location, Date and Crop stay
// empty until their step has completed.
type Session struct {
	ConversationID string              `json:"conversation_id"`
	State          DialogState         `json:"state"`
	Location       *contractx.Location `json:"location,omitempty"`
	Date           string              `json:"date,omitempty"`
	Crop           string              `json:"crop,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNilSession        = errors.New("nil session")
	ErrInvalidTransition = errors.New("invalid dialog transition")
)

func NewSession(conversationID string, now time.Time) *Session {
	return &Session{
		ConversationID: conversationID,
		State:          AwaitingLocation,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) HasLocation() bool {
	return s != nil && s.Location != nil
}

func (s *Session) HasDate() bool {
	return s != nil && s.Date != ""
}

// SetLocation stores the location and advances to AWAITING_DATE.
func (s *Session) SetLocation(loc contractx.Location, now time.Time) error {
	if err := s.expect(AwaitingLocation); err != nil {
		return err
	}
	s.Location = &loc
	s.State = AwaitingDate
	s.Touch(now)
	return nil
}

// SetDate stores the date and advances to AWAITING_CROP.
func (s *Session) SetDate(date string, now time.Time) error {
	if err := s.expect(AwaitingDate); err != nil {
		return err
	}
	s.Date = date
	s.State = AwaitingCrop
	s.Touch(now)
	return nil
}

// SetCrop stores the crop name. The state is left unchanged; the caller
// completes the session once the report has been produced.
func (s *Session) SetCrop(crop string, now time.Time) error {
	if err := s.expect(AwaitingCrop); err != nil {
		return err
	}
	s.Crop = crop
	s.Touch(now)
	return nil
}

func (s *Session) MarkComplete(now time.Time) error {
	if err := s.expect(AwaitingCrop); err != nil {
		return err
	}
	s.State = Complete
	s.Touch(now)
	return nil
}

func (s *Session) Cancel(now time.Time) error {
	if s == nil {
		return ErrNilSession
	}
	if s.State.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, s.State)
	}
	s.State = Cancelled
	s.Touch(now)
	return nil
}

// Query returns the aggregator input. It fails with ErrMissingPriorInput if
// location or date have not been collected.
func (s *Session) Query() (contractx.Query, error) {
	if s == nil {
		return contractx.Query{}, ErrNilSession
	}
	if !s.HasLocation() || !s.HasDate() {
		return contractx.Query{}, fmt.Errorf("%w: location=%t date=%t", contractx.ErrMissingPriorInput, s.HasLocation(), s.HasDate())
	}
	return contractx.Query{
		Location: *s.Location,
		Date:     s.Date,
		Crop:     s.Crop,
	}, nil
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.ConversationID) == "" {
		return ErrInvalidSession
	}
	if !s.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, s.State)
	}
	return nil
}

func (s *Session) expect(want DialogState) error {
	if s == nil {
		return ErrNilSession
	}
	if s.State != want {
		return fmt.Errorf("%w: in %s, want %s", ErrInvalidTransition, s.State, want)
	}
	return nil
}
