package contract

import (
	"fmt"
	"time"
)

type ProviderKind string

const (
	ProviderWeather ProviderKind = "weather"
	ProviderImagery ProviderKind = "imagery"
	ProviderWater   ProviderKind = "water"
	ProviderAdvice  ProviderKind = "advice"
)

// Location is a validated latitude/longitude pair in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WeatherData holds current conditions. HumidityPct is nil when the
// provider omitted it.
type WeatherData struct {
	TemperatureC float64  `json:"temperature_c"`
	Condition    string   `json:"condition"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty"`
}

type ImageryData struct {
	URL string `json:"url"`
}

type WaterData struct {
	URL string `json:"url"`
}

type AdviceData struct {
	Note string `json:"note"`
}

// ProviderResult is the tagged outcome of one provider call. Exactly one of
// Payload or Reason is meaningful, selected by OK.
type ProviderResult struct {
	Provider ProviderKind `json:"provider"`
	OK       bool         `json:"ok"`
	Payload  any          `json:"payload,omitempty"`
	Reason   string       `json:"reason,omitempty"`
}

func Success(kind ProviderKind, payload any) ProviderResult {
	return ProviderResult{Provider: kind, OK: true, Payload: payload}
}

func Failure(kind ProviderKind, reason string) ProviderResult {
	return ProviderResult{Provider: kind, Reason: reason}
}

// Err returns the failure as a ProviderError, or nil on success.
func (r ProviderResult) Err() error {
	if r.OK {
		return nil
	}
	return &ProviderError{Provider: r.Provider, Reason: r.Reason}
}

type ProviderError struct {
	Provider ProviderKind
	Reason   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider=%s reason=%q", ErrProviderFailure, e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return ErrProviderFailure
}

// Query is the validated input handed to the aggregator.
type Query struct {
	Location Location `json:"location"`
	Date     string   `json:"date"`
	Crop     string   `json:"crop"`
}

// AggregatedReport is built once by the aggregator and rendered once by the
// formatter. Advice is nil when no advisor is configured.
type AggregatedReport struct {
	ID          string          `json:"id"`
	Query       Query           `json:"query"`
	Weather     ProviderResult  `json:"weather"`
	Imagery     ProviderResult  `json:"imagery"`
	Water       ProviderResult  `json:"water"`
	Advice      *ProviderResult `json:"advice,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}

type EventKind string

const (
	EventStart    EventKind = "start"
	EventLocation EventKind = "location"
	EventText     EventKind = "text"
	EventCancel   EventKind = "cancel"
)

// Event is one inbound message from the chat transport, scoped to a conversation.
type Event struct {
	ConversationID string    `json:"conversation_id"`
	Kind           EventKind `json:"kind"`
	Latitude       float64   `json:"latitude,omitempty"`
	Longitude      float64   `json:"longitude,omitempty"`
	Text           string    `json:"text,omitempty"`
}

type ReplyKind string

const (
	// ReplyNone means the event was not routed in the current state; nothing is sent.
	ReplyNone           ReplyKind = ""
	ReplyText           ReplyKind = "text"
	ReplyLocationPrompt ReplyKind = "location_prompt"
	ReplyFormatted      ReplyKind = "formatted"
)

const MarkupMarkdownV2 = "MarkdownV2"

// Reply is the outbound action for the transport.
// Reply is what the transport sends back. PlainText is set for formatted
// replies and is sent when the markup is rejected.
type Reply struct {
	Kind      ReplyKind `json:"kind"`
	Text      string    `json:"text,omitempty"`
	PlainText string    `json:"plain_text,omitempty"`
	Markup    string    `json:"markup,omitempty"`
	State     string    `json:"state"`
}
