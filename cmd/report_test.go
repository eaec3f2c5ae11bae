package cmd

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	q, err := buildQuery(13.75, 100.5, " 2024-06-01 ", " rice ")
	if err != nil {
		t.Fatalf("buildQuery() error = %v", err)
	}
	want := contractx.Query{
		Location: contractx.Location{Latitude: 13.75, Longitude: 100.5},
		Date:     "2024-06-01",
		Crop:     "rice",
	}
	if q != want {
		t.Fatalf("buildQuery() = %#v, want %#v", q, want)
	}
}

func TestBuildQueryRejects(t *testing.T) {
	t.Parallel()

	if _, err := buildQuery(100, 0, "2024-06-01", "rice"); !errors.Is(err, contractx.ErrInvalidLocation) {
		t.Fatalf("buildQuery() error = %v, want ErrInvalidLocation", err)
	}
	if _, err := buildQuery(0, 0, "June 1", "rice"); !errors.Is(err, contractx.ErrInvalidDateFormat) {
		t.Fatalf("buildQuery() error = %v, want ErrInvalidDateFormat", err)
	}
	if _, err := buildQuery(0, 0, "2024-06-01", "  "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("buildQuery() error = %v, want ErrValidation", err)
	}
}
