package agronomist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	llmx "github.com/tanpawarit/Chative-Crop-Advisor/agent/llm"
	promptx "github.com/tanpawarit/Chative-Crop-Advisor/agent/prompt"
)

// ErrNoEvidence is returned when every provider failed and there is nothing
// to base a note on.
var ErrNoEvidence = errors.New("no provider data to advise on")

const maxNoteRunes = 600

// Agronomist writes a short advisory note from an aggregated report.
type Agronomist struct {
	noteRunner    compose.Runnable[map[string]any, noteLLMOutput]
	runtimeRunner compose.Runnable[contractx.AggregatedReport, string]
}

var _ contractx.Advisor = (*Agronomist)(nil)

type noteLLMOutput struct {
	Note string `json:"note"`
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*Agronomist, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}

	noteRunner, err := compileNoteGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	a := &Agronomist{noteRunner: noteRunner}

	runtimeRunner, err := compileAdviceRuntimeGraph(ctx, a.runModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	a.runtimeRunner = runtimeRunner

	return a, nil
}

// NewFromConfig builds the advisor from the OpenRouter settings and the
// embedded prompt.
func NewFromConfig(ctx context.Context, cfg llmx.Config) (*Agronomist, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	modelCfg := cfg.Agronomist()
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create agronomist model: %v", contractx.ErrModelInvoke, err)
	}

	return New(ctx, chatModel, promptx.LoadPromptSet().Agronomist)
}

func (a *Agronomist) Advise(ctx context.Context, report contractx.AggregatedReport) (string, error) {
	return a.runtimeRunner.Invoke(ctx, report)
}

func (a *Agronomist) runModel(ctx context.Context, report contractx.AggregatedReport) (string, error) {
	input, err := json.Marshal(summarizeReport(report))
	if err != nil {
		return "", fmt.Errorf("%w: marshal agronomist payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.noteRunner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return "", fmt.Errorf("%w: agronomist invoke: %v", contractx.ErrModelInvoke, err)
	}

	note := strings.TrimSpace(out.Note)
	if note == "" {
		return "", fmt.Errorf("%w: agronomist note is empty", contractx.ErrSchemaViolation)
	}
	if r := []rune(note); len(r) > maxNoteRunes {
		note = strings.TrimSpace(string(r[:maxNoteRunes])) + "…"
	}
	return note, nil
}

func summarizeReport(r contractx.AggregatedReport) map[string]any {
	weather := map[string]any{}
	if data, ok := r.Weather.Payload.(contractx.WeatherData); r.Weather.OK && ok {
		weather["temperature_c"] = data.TemperatureC
		weather["condition"] = data.Condition
		if data.HumidityPct != nil {
			weather["humidity_pct"] = *data.HumidityPct
		}
	} else {
		weather["unavailable"] = r.Weather.Reason
	}

	return map[string]any{
		"crop": r.Query.Crop,
		"date": r.Query.Date,
		"location": map[string]any{
			"latitude":  r.Query.Location.Latitude,
			"longitude": r.Query.Location.Longitude,
		},
		"weather":           weather,
		"imagery_available": r.Imagery.OK,
		"water_available":   r.Water.OK,
	}
}
