package report

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

const (
	sectionSeparator = "---"
	noHumidity       = "No data"
)

// Formatter renders an AggregatedReport as escaped MarkdownV2 text.
type Formatter struct{}

var _ contractx.Formatter = Formatter{}

func (Formatter) Format(r contractx.AggregatedReport) string {
	return Escape(Compose(r))
}

func (Formatter) Plain(r contractx.AggregatedReport) string {
	return Compose(r)
}

// Compose builds the unescaped report text.
func Compose(r contractx.AggregatedReport) string {
	var b strings.Builder

	b.WriteString("🌾 Crop Yield Prediction 🌾\n")
	fmt.Fprintf(&b, "Crop: %s\n", r.Query.Crop)
	fmt.Fprintf(&b, "Date: %s\n", r.Query.Date)
	fmt.Fprintf(&b, "Location: Latitude %s, Longitude %s\n",
		FormatCoordinate(r.Query.Location.Latitude),
		FormatCoordinate(r.Query.Location.Longitude),
	)

	b.WriteString("\n" + sectionSeparator + "\n")
	b.WriteString("Current Weather:\n")
	writeWeather(&b, r.Weather)

	b.WriteString("\n" + sectionSeparator + "\n")
	b.WriteString("NASA Earth Data:\n")
	fmt.Fprintf(&b, "Satellite image: %s\n", urlOrReason(r.Imagery))
	fmt.Fprintf(&b, "Water data: %s\n", urlOrReason(r.Water))

	if r.Advice != nil && r.Advice.OK {
		if advice, ok := r.Advice.Payload.(contractx.AdviceData); ok && strings.TrimSpace(advice.Note) != "" {
			b.WriteString("\n" + sectionSeparator + "\n")
			b.WriteString("Agronomist Note:\n")
			b.WriteString(strings.TrimSpace(advice.Note))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeWeather(b *strings.Builder, res contractx.ProviderResult) {
	data, ok := res.Payload.(contractx.WeatherData)
	if !res.OK || !ok {
		b.WriteString(reasonOf(res))
		b.WriteString("\n")
		return
	}

	humidity := noHumidity
	if data.HumidityPct != nil {
		humidity = strconv.FormatFloat(*data.HumidityPct, 'f', -1, 64) + "%"
	}

	fmt.Fprintf(b, "Temperature: %.2f°C\n", data.TemperatureC)
	fmt.Fprintf(b, "Condition: %s\n", Capitalize(data.Condition))
	fmt.Fprintf(b, "Humidity: %s\n", humidity)
}

func urlOrReason(res contractx.ProviderResult) string {
	if !res.OK {
		return reasonOf(res)
	}
	switch data := res.Payload.(type) {
	case contractx.ImageryData:
		return data.URL
	case contractx.WaterData:
		return data.URL
	default:
		return reasonOf(res)
	}
}

func reasonOf(res contractx.ProviderResult) string {
	if reason := strings.TrimSpace(res.Reason); reason != "" {
		return reason
	}
	return fmt.Sprintf("No %s data available.", res.Provider)
}

// FormatCoordinate prints the shortest decimal form that round-trips.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
