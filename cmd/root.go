package cmd

import (
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/config"
	logx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "cropbot",
	Short: "Crop advisor chat bot",
	Long: `cropbot walks a user through sharing a location, a date and a crop name,
then replies with a report built from weather, satellite imagery and water data.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvPath(envFile)

		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.Init(*logCfg)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file (default ./.env when present)")
}
