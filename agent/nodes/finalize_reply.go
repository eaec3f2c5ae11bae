package dialognode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	statex "github.com/tanpawarit/Chative-Crop-Advisor/agent/state"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var to statex.DialogState
	if in.Session != nil {
		to = in.Session.State
	}

	reply := in.Reply
	reply.State = string(to)
	if reply.Kind == contractx.ReplyFormatted && reply.Markup == "" {
		reply.Markup = contractx.MarkupMarkdownV2
	}

	return GraphOutput{
		Reply: reply,
		From:  in.From,
		To:    to,
	}, nil
}
