package provider

import "time"

type Config struct {
	OpenWeatherAPIKey string        `envconfig:"OPENWEATHER_API_KEY" required:"true"`
	OpenWeatherURL    string        `envconfig:"OPENWEATHER_URL" default:"https://api.openweathermap.org/data/2.5/weather"`
	NASAAPIKey        string        `envconfig:"NASA_API_KEY" default:"DEMO_KEY"`
	NASAAssetsURL     string        `envconfig:"NASA_ASSETS_URL" default:"https://api.nasa.gov/planetary/earth/assets"`
	NASADim           float64       `envconfig:"NASA_DIM" default:"0.1"`
	Timeout           time.Duration `split_words:"true" default:"10s"`
	RateLimit         float64       `split_words:"true" default:"0"`
	RateBurst         int           `split_words:"true" default:"1"`
}
