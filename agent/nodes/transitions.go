package dialognode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	reportx "github.com/tanpawarit/Chative-Crop-Advisor/agent/report"
	statex "github.com/tanpawarit/Chative-Crop-Advisor/agent/state"
	validatex "github.com/tanpawarit/Chative-Crop-Advisor/agent/validate"
)

// Deps are the collaborators transition handlers may call.
type Deps struct {
	Aggregator contractx.Aggregator
	Formatter  contractx.Formatter
}

type handlerFunc func(ctx context.Context, in *GraphState, deps Deps) error

// transitions lists, per non-terminal state, the events that state accepts.
// Any (state, event) pair missing here is not routed and yields no reply.
var transitions = map[statex.DialogState]map[contractx.EventKind]handlerFunc{
	statex.AwaitingLocation: {
		contractx.EventLocation: handleLocation,
		contractx.EventCancel:   handleCancel,
	},
	statex.AwaitingDate: {
		contractx.EventText:   handleDate,
		contractx.EventCancel: handleCancel,
	},
	statex.AwaitingCrop: {
		contractx.EventText:   handleCrop,
		contractx.EventCancel: handleCancel,
	},
}

// Accepts reports whether state routes events of the given kind. Start is
// accepted everywhere.
func Accepts(state statex.DialogState, kind contractx.EventKind) bool {
	if kind == contractx.EventStart {
		return true
	}
	_, ok := transitions[state][kind]
	return ok
}

func ApplyTransition(ctx context.Context, in *GraphState, deps Deps) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	logger := eventLogger(in)

	if in.Event.Kind == contractx.EventStart {
		return in, handleStart(ctx, in, deps)
	}

	if in.Session == nil {
		logger.Debug().Msg("event outside an active conversation ignored")
		return in, nil
	}

	handler, ok := transitions[in.Session.State][in.Event.Kind]
	if !ok {
		logger.Debug().Msg("event not routed in current state")
		return in, nil
	}

	if err := handler(ctx, in, deps); err != nil {
		return nil, err
	}

	logger.Info().Str("to", string(in.Session.State)).Msg("event handled")
	return in, nil
}

func handleStart(_ context.Context, in *GraphState, _ Deps) error {
	if in.Session != nil {
		logger := eventLogger(in)
		logger.Info().Msg("restarting conversation, previous session discarded")
	}
	in.Session = statex.NewSession(in.Event.ConversationID, in.Now)
	in.Reply = contractx.Reply{Kind: contractx.ReplyLocationPrompt, Text: MsgWelcome}
	return nil
}

func handleLocation(_ context.Context, in *GraphState, _ Deps) error {
	loc, err := validatex.Location(in.Event.Latitude, in.Event.Longitude)
	if err != nil {
		logger := eventLogger(in)
		logger.Info().Err(err).Msg("location rejected")
		in.Reply = contractx.Reply{Kind: contractx.ReplyLocationPrompt, Text: MsgInvalidLocation}
		return nil
	}

	if err := in.Session.SetLocation(loc, in.Now); err != nil {
		return err
	}
	in.Reply = textReply(fmt.Sprintf(MsgLocationReceived,
		reportx.FormatCoordinate(loc.Latitude),
		reportx.FormatCoordinate(loc.Longitude),
	))
	return nil
}

func handleDate(_ context.Context, in *GraphState, _ Deps) error {
	date, err := validatex.Date(in.Event.Text)
	if err != nil {
		logger := eventLogger(in)
		logger.Info().Err(err).Msg("date rejected")
		in.Reply = textReply(MsgInvalidDate)
		return nil
	}

	if err := in.Session.SetDate(date, in.Now); err != nil {
		return err
	}
	in.Reply = textReply(fmt.Sprintf(MsgDateReceived, date))
	return nil
}

func handleCrop(ctx context.Context, in *GraphState, deps Deps) error {
	logger := eventLogger(in)

	crop := strings.TrimSpace(in.Event.Text)
	if crop == "" {
		in.Reply = textReply(MsgEmptyCrop)
		return nil
	}
	if err := in.Session.SetCrop(crop, in.Now); err != nil {
		return err
	}

	q, err := in.Session.Query()
	if errors.Is(err, contractx.ErrMissingPriorInput) {
		logger.Error().Err(err).Msg("location or date missing from session")
		in.Reply = textReply(MsgMissingPriorInput)
		return in.Session.MarkComplete(in.Now)
	}
	if err != nil {
		return err
	}

	logger.Info().Str("crop", crop).Msg("crop received, building report")
	report := deps.Aggregator.Aggregate(ctx, q)
	in.Reply = contractx.Reply{
		Kind:      contractx.ReplyFormatted,
		Text:      deps.Formatter.Format(report),
		PlainText: deps.Formatter.Plain(report),
		Markup:    contractx.MarkupMarkdownV2,
	}
	return in.Session.MarkComplete(in.Now)
}

func handleCancel(_ context.Context, in *GraphState, _ Deps) error {
	if err := in.Session.Cancel(in.Now); err != nil {
		return err
	}
	logger := eventLogger(in)
	logger.Info().Msg("conversation cancelled")
	in.Reply = textReply(MsgCancelled)
	return nil
}

func textReply(text string) contractx.Reply {
	return contractx.Reply{Kind: contractx.ReplyText, Text: text}
}

func eventLogger(in *GraphState) zerolog.Logger {
	lc := log.With().
		Str("conversation_id", in.Event.ConversationID).
		Str("event", string(in.Event.Kind))
	if in.Session != nil {
		lc = lc.Str("state", string(in.Session.State))
	}
	return lc.Logger()
}
