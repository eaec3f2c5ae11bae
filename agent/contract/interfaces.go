package contract

import "context"

// Provider fetches one category of data. It never returns an error: every
// outcome, including transport failures, is encoded in the ProviderResult.
type Provider interface {
	Kind() ProviderKind
	Fetch(ctx context.Context, q Query) ProviderResult
}

type Aggregator interface {
	Aggregate(ctx context.Context, q Query) AggregatedReport
}

// Formatter renders a report. Format returns the escaped chat markup; Plain
// returns the same text unescaped, for transports that cannot send markup.
type Formatter interface {
	Format(report AggregatedReport) string
	Plain(report AggregatedReport) string
}

// Advisor writes a short agronomy note from the provider results.
type Advisor interface {
	Advise(ctx context.Context, report AggregatedReport) (string, error)
}
