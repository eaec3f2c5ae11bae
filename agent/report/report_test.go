package report

import (
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

func sampleReport() contractx.AggregatedReport {
	humidity := 65.0
	return contractx.AggregatedReport{
		ID: "r1",
		Query: contractx.Query{
			Location: contractx.Location{Latitude: 40, Longitude: -75},
			Date:     "2024-06-01",
			Crop:     "corn",
		},
		Weather: contractx.Success(contractx.ProviderWeather, contractx.WeatherData{
			TemperatureC: 26.85, Condition: "light RAIN", HumidityPct: &humidity,
		}),
		Imagery: contractx.Success(contractx.ProviderImagery, contractx.ImageryData{URL: "https://earth.example.com/img.png"}),
		Water:   contractx.Success(contractx.ProviderWater, contractx.WaterData{URL: "https://water.example.com/w"}),
	}
}

func TestEscapeReservedCharacters(t *testing.T) {
	t.Parallel()

	for _, ch := range ReservedChars {
		in := "a" + string(ch) + "b"
		want := "a" + EscapeMarker + string(ch) + "b"
		if got := Escape(in); got != want {
			t.Fatalf("Escape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeLeavesOtherCharactersAlone(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for r := rune(0x20); r < 0x7f; r++ {
		if !strings.ContainsRune(ReservedChars, r) {
			b.WriteRune(r)
		}
	}
	b.WriteString("🌾°é\n\t")

	in := b.String()
	if got := Escape(in); got != in {
		t.Fatalf("Escape() changed non-reserved text:\n got %q\nwant %q", got, in)
	}
}

func TestEscapeSinglePass(t *testing.T) {
	t.Parallel()

	in := `a\.b..c`
	want := `a\\.b\.\.c`
	if got := Escape(in); got != want {
		t.Fatalf("Escape(%q) = %q, want %q", in, got, want)
	}
}

// Every reserved character in the output is preceded by exactly one marker,
// and stripping the markers in front of reserved characters restores the input.
func TestFormatEscapesExactlyOnce(t *testing.T) {
	t.Parallel()

	composed := Compose(sampleReport())
	out := Formatter{}.Format(sampleReport())

	var restored strings.Builder
	runes := []rune(out)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if strings.ContainsRune(ReservedChars, r) {
			t.Fatalf("unescaped reserved character %q at rune %d", r, i)
		}
		if string(r) == EscapeMarker && i+1 < len(runes) && strings.ContainsRune(ReservedChars, runes[i+1]) {
			restored.WriteRune(runes[i+1])
			i++
			continue
		}
		restored.WriteRune(r)
	}
	if restored.String() != composed {
		t.Fatalf("unescaped output differs from composed text:\n got %q\nwant %q", restored.String(), composed)
	}
}

func TestFormatAllSuccess(t *testing.T) {
	t.Parallel()

	out := Formatter{}.Format(sampleReport())

	wants := []string{
		"corn",
		`2024\-06\-01`,
		`Latitude 40, Longitude \-75`,
		`Temperature\: 26\.85°C`,
		`Condition\: Light rain`,
		`Humidity\: 65%`,
		`https\://earth\.example\.com/img\.png`,
		`https\://water\.example\.com/w`,
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	for _, literal := range []string{"No data available", "Error fetching", "An error occurred", "Timed out"} {
		if strings.Contains(out, literal) {
			t.Fatalf("output contains failure literal %q:\n%s", literal, out)
		}
	}
}

func TestFormatOrder(t *testing.T) {
	t.Parallel()

	out := Compose(sampleReport())
	order := []string{"Crop:", "Date:", "Location:", "Temperature:", "Satellite image:", "Water data:"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		if idx <= last {
			t.Fatalf("%q out of order in:\n%s", marker, out)
		}
		last = idx
	}
}

func TestFormatWeatherFailureSubstitutesReason(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.Weather = contractx.Failure(contractx.ProviderWeather, "Invalid API key.")
	out := Compose(r)

	if !strings.Contains(out, "Current Weather:\nInvalid API key.\n") {
		t.Fatalf("weather reason not substituted:\n%s", out)
	}
	for _, field := range []string{"Temperature:", "Condition:", "Humidity:"} {
		if strings.Contains(out, field) {
			t.Fatalf("failed weather must not render %q:\n%s", field, out)
		}
	}
	if !strings.Contains(out, "Satellite image: https://earth.example.com/img.png") ||
		!strings.Contains(out, "Water data: https://water.example.com/w") {
		t.Fatalf("other sections must render normally:\n%s", out)
	}
}

func TestFormatImageryAndWaterFailures(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.Imagery = contractx.Failure(contractx.ProviderImagery, "No data available.")
	r.Water = contractx.Failure(contractx.ProviderWater, "An error occurred while processing NASA water data.")
	out := Compose(r)

	if !strings.Contains(out, "Satellite image: No data available.") {
		t.Fatalf("imagery reason missing:\n%s", out)
	}
	if !strings.Contains(out, "Water data: An error occurred while processing NASA water data.") {
		t.Fatalf("water reason missing:\n%s", out)
	}
	if !strings.Contains(out, "Temperature: 26.85°C") {
		t.Fatalf("weather must render normally:\n%s", out)
	}
}

func TestFormatMissingHumidity(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.Weather = contractx.Success(contractx.ProviderWeather, contractx.WeatherData{TemperatureC: -3.456, Condition: "snow"})
	out := Compose(r)

	if !strings.Contains(out, "Humidity: No data\n") {
		t.Fatalf("missing humidity not rendered:\n%s", out)
	}
	if strings.Contains(out, "No data%") {
		t.Fatalf("missing humidity must not carry a percent sign:\n%s", out)
	}
	if !strings.Contains(out, "Temperature: -3.46°C") {
		t.Fatalf("temperature not rounded to two places:\n%s", out)
	}
}

func TestFormatAdvice(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	advice := contractx.Success(contractx.ProviderAdvice, contractx.AdviceData{Note: "Scout for rootworm."})
	r.Advice = &advice
	if out := Compose(r); !strings.HasSuffix(out, "Agronomist Note:\nScout for rootworm.\n") {
		t.Fatalf("advice not appended:\n%s", out)
	}

	failed := contractx.Failure(contractx.ProviderAdvice, "Advisory note unavailable.")
	r.Advice = &failed
	if out := Compose(r); strings.Contains(out, "Agronomist Note") || strings.Contains(out, "unavailable") {
		t.Fatalf("failed advice must be omitted:\n%s", out)
	}
}

func TestCapitalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":           "",
		"clear sky":  "Clear sky",
		"OVERCAST":   "Overcast",
		"élan vital": "Élan vital",
	}
	for in, want := range cases {
		if got := Capitalize(in); got != want {
			t.Fatalf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
