package provider

import (
	"net/http"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

// Build returns the weather, imagery and water providers in report order.
// client may be nil, in which case each provider gets its own client with
// cfg.Timeout.
func Build(cfg Config, client *http.Client) []contractx.Provider {
	return []contractx.Provider{
		NewOpenWeather(cfg, client),
		NewNASAImagery(cfg, client),
		NewNASAWater(cfg, client),
	}
}
