package dialognode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	statex "github.com/tanpawarit/Chative-Crop-Advisor/agent/state"
)

// SaveSession persists an in-progress session and deletes a finished one.
func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return in, nil
	}

	if in.Session.State.IsTerminal() {
		if err := store.Delete(ctx, in.Session.ConversationID); err != nil {
			// The reply is already decided; a stale terminal session is ignored on load.
			log.Error().Err(err).Str("conversation_id", in.Session.ConversationID).Msg("delete finished session")
		}
		return in, nil
	}

	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return in, nil
}
