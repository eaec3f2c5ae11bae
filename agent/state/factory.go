package state

import (
	"fmt"
	"strings"
)

// NewStore builds the configured session store. upstash is only consulted
// when Backend is "upstash".
func NewStore(cfg Config, upstash func() (UpstashRedisConfig, error)) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(cfg.TTL), nil
	case BackendUpstash:
		if upstash == nil {
			return nil, fmt.Errorf("upstash config loader is required for backend %q", BackendUpstash)
		}
		upCfg, err := upstash()
		if err != nil {
			return nil, fmt.Errorf("load upstash config: %w", err)
		}
		return NewUpstashRedisStore(upCfg, WithTTL(cfg.TTL))
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
