package dialognode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	statex "github.com/tanpawarit/Chative-Crop-Advisor/agent/state"
)

func LoadSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.Event.ConversationID)
	switch {
	case errors.Is(err, statex.ErrStateNotFound):
		return in, nil
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}

	// A terminal session left behind by a failed delete is treated as absent.
	if sess.State.IsTerminal() {
		return in, nil
	}

	in.Session = sess
	in.From = sess.State
	return in, nil
}
