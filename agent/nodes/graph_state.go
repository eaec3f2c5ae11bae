package dialognode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	statex "github.com/tanpawarit/Chative-Crop-Advisor/agent/state"
)

var (
	ErrInvalidConversation = errors.New("conversation id is empty")
	ErrUnknownEvent        = errors.New("unknown event kind")
)

type GraphInput struct {
	Event contractx.Event
}

type GraphOutput struct {
	Reply contractx.Reply
	From  statex.DialogState
	To    statex.DialogState
}

// GraphState is threaded through every node of one HandleEvent call.
// Session is nil when the conversation has no active dialog.
type GraphState struct {
	Event contractx.Event
	Now   time.Time

	Session *statex.Session
	From    statex.DialogState

	Reply contractx.Reply
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	ev := in.Event
	ev.ConversationID = strings.TrimSpace(ev.ConversationID)
	if ev.ConversationID == "" {
		return nil, ErrInvalidConversation
	}

	switch ev.Kind {
	case contractx.EventStart, contractx.EventLocation, contractx.EventText, contractx.EventCancel:
	default:
		return nil, ErrUnknownEvent
	}

	return &GraphState{
		Event: ev,
		Now:   nowFn().UTC(),
	}, nil
}
