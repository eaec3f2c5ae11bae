package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	reportx "github.com/tanpawarit/Chative-Crop-Advisor/agent/report"
	validatex "github.com/tanpawarit/Chative-Crop-Advisor/agent/validate"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build one report without the chat dialog",
	Example: `  cropbot report --lat 13.75 --lon 100.5 --date 2024-06-01 --crop rice
  cropbot report --lat 40 --lon -75 --date 2024-06-01 --crop corn --markdown`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		lat, _ := flags.GetFloat64("lat")
		lon, _ := flags.GetFloat64("lon")
		date, _ := flags.GetString("date")
		crop, _ := flags.GetString("crop")
		markdown, _ := flags.GetBool("markdown")
		advice, _ := flags.GetBool("advice")

		q, err := buildQuery(lat, lon, date, crop)
		if err != nil {
			return err
		}

		agg, err := buildAggregator(cmd.Context(), nil, advice)
		if err != nil {
			return err
		}

		r := agg.Aggregate(cmd.Context(), q)
		text := reportx.Compose(r)
		if markdown {
			text = reportx.Formatter{}.Format(r)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Float64("lat", 0, "latitude in decimal degrees")
	reportCmd.Flags().Float64("lon", 0, "longitude in decimal degrees")
	reportCmd.Flags().String("date", "", "date as YYYY-MM-DD")
	reportCmd.Flags().String("crop", "", "crop name")
	reportCmd.Flags().Bool("markdown", false, "print MarkdownV2-escaped text as sent to chat")
	reportCmd.Flags().Bool("advice", false, "append the agronomist note when OpenRouter is configured")
	_ = reportCmd.MarkFlagRequired("lat")
	_ = reportCmd.MarkFlagRequired("lon")
	_ = reportCmd.MarkFlagRequired("date")
	_ = reportCmd.MarkFlagRequired("crop")
}

func buildQuery(lat, lon float64, date, crop string) (contractx.Query, error) {
	loc, err := validatex.Location(lat, lon)
	if err != nil {
		return contractx.Query{}, err
	}
	d, err := validatex.Date(date)
	if err != nil {
		return contractx.Query{}, err
	}
	c := strings.TrimSpace(crop)
	if c == "" {
		return contractx.Query{}, fmt.Errorf("%w: crop is required", contractx.ErrValidation)
	}
	return contractx.Query{Location: loc, Date: d, Crop: c}, nil
}
