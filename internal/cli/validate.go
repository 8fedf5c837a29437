package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and stack topology",
	Long: `Builds the stack declaration from the configuration and checks its
invariants without touching AWS: subnet CIDRs partition the VPC range,
the fleet carries its identity tags, the deployment group selector
matches the fleet, and the pipeline stages wire their artifacts in
order.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := buildStack(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Stack %s is valid: %d subnets, %d instances, %d pipeline stages.\n",
		s.Name, len(s.Network.Subnets), s.Fleet.Count, len(s.Pipeline.Stages))
	return nil
}
