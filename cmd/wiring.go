package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	agronomistx "github.com/tanpawarit/Chative-Crop-Advisor/agent/agents/agronomist"
	aggregatex "github.com/tanpawarit/Chative-Crop-Advisor/agent/aggregate"
	llmx "github.com/tanpawarit/Chative-Crop-Advisor/agent/llm"
	providerx "github.com/tanpawarit/Chative-Crop-Advisor/agent/provider"
	configx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/config"
	metricsx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/metrics"
)

// buildAggregator wires the providers and, when OpenRouter is configured,
// the agronomist advisor.
func buildAggregator(ctx context.Context, m *metricsx.Metrics, withAdvice bool) (*aggregatex.Aggregator, error) {
	providerCfg, err := configx.New[providerx.Config]("PROVIDER")
	if err != nil {
		return nil, fmt.Errorf("load provider config: %w", err)
	}
	aggCfg, err := configx.New[aggregatex.Config]("AGGREGATE")
	if err != nil {
		return nil, fmt.Errorf("load aggregate config: %w", err)
	}

	opts := []aggregatex.Option{aggregatex.WithMetrics(m)}

	if withAdvice {
		llmCfg, err := configx.New[llmx.Config]("OPENROUTER")
		if err != nil {
			return nil, fmt.Errorf("load openrouter config: %w", err)
		}
		if llmCfg.Enabled() {
			advisor, err := agronomistx.NewFromConfig(ctx, *llmCfg)
			if err != nil {
				return nil, err
			}
			opts = append(opts, aggregatex.WithAdvisor(advisor))
			log.Info().Str("model", llmCfg.Agronomist().Model).Msg("agronomist note enabled")
		}
	}

	return aggregatex.New(providerx.Build(*providerCfg, nil), *aggCfg, opts...)
}
