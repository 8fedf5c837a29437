package cli

import (
	"github.com/spf13/cobra"
	"github.com/webfleet-io/webfleet/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "webfleet",
	Short: "One-shot provisioning for a tagged web fleet with a delivery pipeline",
	Long: `Webfleet provisions a small, fixed web stack on AWS in one shot:
a VPC with public subnets, a tagged EC2 fleet behind an instance role,
and a Source/Build/Deploy pipeline that targets the fleet by its tags.

There is no plan or diff phase. 'webfleet up' creates everything and
records it in a manifest; 'webfleet down' deletes everything the
manifest records, in reverse.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file (default webfleet.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(outputCmd)
	rootCmd.AddCommand(versionCmd)
}
