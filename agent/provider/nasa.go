package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

const (
	NASAFetchError = "Error fetching data from NASA API."

	ImageryNoData          = "No data available."
	ImageryProcessingError = "An error occurred while processing NASA data."

	WaterNoData          = "No water data available."
	WaterProcessingError = "An error occurred while processing NASA water data."
)

// NASAAssets queries the NASA Earth assets endpoint. With useDate set it
// serves the imagery dataset for the requested day; without it, the
// date-independent water/land dataset.
type NASAAssets struct {
	kind     contractx.ProviderKind
	useDate  bool
	apiKey   string
	endpoint string
	dim      float64
	http     *getter

	noData          string
	processingError string
}

type nasaAssetsResponse struct {
	Count   *int `json:"count"`
	Results []struct {
		URL string `json:"url"`
	} `json:"results"`
	URL   string `json:"url"`
	Msg   string `json:"msg"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewNASAImagery(cfg Config, client *http.Client) *NASAAssets {
	return newNASAAssets(cfg, client, contractx.ProviderImagery, true, ImageryNoData, ImageryProcessingError)
}

func NewNASAWater(cfg Config, client *http.Client) *NASAAssets {
	return newNASAAssets(cfg, client, contractx.ProviderWater, false, WaterNoData, WaterProcessingError)
}

func newNASAAssets(
	cfg Config,
	client *http.Client,
	kind contractx.ProviderKind,
	useDate bool,
	noData string,
	processingError string,
) *NASAAssets {
	dim := cfg.NASADim
	if dim <= 0 {
		dim = 0.1
	}
	return &NASAAssets{
		kind:            kind,
		useDate:         useDate,
		apiKey:          strings.TrimSpace(cfg.NASAAPIKey),
		endpoint:        strings.TrimSpace(cfg.NASAAssetsURL),
		dim:             dim,
		http:            newGetter(cfg, client),
		noData:          noData,
		processingError: processingError,
	}
}

func (p *NASAAssets) Kind() contractx.ProviderKind {
	return p.kind
}

func (p *NASAAssets) Fetch(ctx context.Context, q contractx.Query) contractx.ProviderResult {
	logger := log.With().Str("provider", string(p.kind)).Logger()

	params := url.Values{
		"lat":     {formatCoord(q.Location.Latitude)},
		"lon":     {formatCoord(q.Location.Longitude)},
		"dim":     {fmt.Sprintf("%g", p.dim)},
		"api_key": {p.apiKey},
	}
	if p.useDate {
		params.Set("date", q.Date)
	}

	logger.Info().
		Float64("latitude", q.Location.Latitude).
		Float64("longitude", q.Location.Longitude).
		Str("date", params.Get("date")).
		Msg("fetching nasa assets")

	status, body, err := p.http.get(ctx, p.endpoint, params)
	if err != nil {
		logger.Error().Err(err).Msg("nasa request failed")
		return contractx.Failure(p.kind, p.processingError)
	}

	var parsed nasaAssetsResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if status != http.StatusOK {
		reason := NASAFetchError
		if decodeErr == nil {
			reason = nasaErrorMessage(parsed)
		}
		logger.Error().Int("status", status).Str("reason", reason).Msg("nasa api error")
		return contractx.Failure(p.kind, reason)
	}

	if decodeErr != nil {
		logger.Error().Err(decodeErr).Msg("decode nasa response")
		return contractx.Failure(p.kind, p.processingError)
	}

	if assetURL := firstAssetURL(parsed); assetURL != "" {
		return p.success(assetURL)
	}

	logger.Error().Msg("nasa returned no assets")
	return contractx.Failure(p.kind, p.noData)
}

func (p *NASAAssets) success(assetURL string) contractx.ProviderResult {
	if p.kind == contractx.ProviderWater {
		return contractx.Success(p.kind, contractx.WaterData{URL: assetURL})
	}
	return contractx.Success(p.kind, contractx.ImageryData{URL: assetURL})
}

// firstAssetURL reads results[0].url when count > 0, falling back to a
// single top-level asset object.
func firstAssetURL(r nasaAssetsResponse) string {
	if r.Count != nil && *r.Count > 0 && len(r.Results) > 0 {
		return strings.TrimSpace(r.Results[0].URL)
	}
	if r.Count == nil {
		return strings.TrimSpace(r.URL)
	}
	return ""
}

func nasaErrorMessage(r nasaAssetsResponse) string {
	if msg := strings.TrimSpace(r.Msg); msg != "" {
		return msg
	}
	if r.Error != nil && strings.TrimSpace(r.Error.Message) != "" {
		return strings.TrimSpace(r.Error.Message)
	}
	return NASAFetchError
}
