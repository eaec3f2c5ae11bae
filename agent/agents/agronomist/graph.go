package agronomist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

func compileNoteGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, noteLLMOutput], error) {
	runner, err := compileStructuredLLMGraph[noteLLMOutput](ctx, chatModel, systemPrompt, "agronomist.note_graph")
	if err != nil {
		return nil, fmt.Errorf("compile note graph: %w", err)
	}
	return runner, nil
}

type adviceGraphState struct {
	Report      contractx.AggregatedReport
	HasEvidence bool
}

// compileAdviceRuntimeGraph routes reports with at least one successful
// provider to the model and short-circuits the rest.
func compileAdviceRuntimeGraph(
	ctx context.Context,
	modelFlow func(context.Context, contractx.AggregatedReport) (string, error),
) (compose.Runnable[contractx.AggregatedReport, string], error) {
	graph := compose.NewGraph[contractx.AggregatedReport, string]()

	if err := graph.AddLambdaNode("validate_and_prepare",
		compose.InvokableLambda(func(ctx context.Context, r contractx.AggregatedReport) (*adviceGraphState, error) {
			if r.Query.Crop == "" {
				return nil, fmt.Errorf("%w: crop is required", contractx.ErrValidation)
			}
			return &adviceGraphState{
				Report:      r,
				HasEvidence: r.Weather.OK || r.Imagery.OK || r.Water.OK,
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add advice runtime validate node: %w", err)
	}

	if err := graph.AddLambdaNode("model_path",
		compose.InvokableLambda(func(ctx context.Context, in *adviceGraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: advice graph state is nil", contractx.ErrValidation)
			}
			return modelFlow(ctx, in.Report)
		}),
	); err != nil {
		return nil, fmt.Errorf("add advice runtime model node: %w", err)
	}

	if err := graph.AddLambdaNode("no_evidence",
		compose.InvokableLambda(func(ctx context.Context, in *adviceGraphState) (string, error) {
			return "", ErrNoEvidence
		}),
	); err != nil {
		return nil, fmt.Errorf("add advice runtime no_evidence node: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *adviceGraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: advice graph state is nil", contractx.ErrValidation)
			}
			if in.HasEvidence {
				return "model_path", nil
			}
			return "no_evidence", nil
		},
		map[string]bool{
			"model_path":  true,
			"no_evidence": true,
		},
	)

	if err := graph.AddBranch("validate_and_prepare", branch); err != nil {
		return nil, fmt.Errorf("add advice runtime branch: %w", err)
	}
	if err := graph.AddEdge(compose.START, "validate_and_prepare"); err != nil {
		return nil, fmt.Errorf("add advice runtime edge start->validate: %w", err)
	}
	if err := graph.AddEdge("model_path", compose.END); err != nil {
		return nil, fmt.Errorf("add advice runtime edge model->end: %w", err)
	}
	if err := graph.AddEdge("no_evidence", compose.END); err != nil {
		return nil, fmt.Errorf("add advice runtime edge no_evidence->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("agronomist.runtime_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile advice runtime graph: %w", err)
	}
	return runner, nil
}

func compileStructuredLLMGraph[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, T], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, T]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add structured prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add structured model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add structured parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add structured edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add structured edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add structured edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add structured edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile structured graph: %w", err)
	}
	return runner, nil
}
