package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/webfleet-io/webfleet/internal/engine"
	"github.com/webfleet-io/webfleet/internal/logging"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/provision/aws"
)

var upParallelism int

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision the stack",
	Long: `Provisions the full stack in one shot: network, security group,
instance role, fleet, artifact bucket, build project, deployment group
and pipeline. Created resources are recorded in the manifest as they
appear, so a failed run can still be torn down with 'webfleet down'.`,
	RunE: runUp,
}

func init() {
	upCmd.Flags().IntVar(&upParallelism, "parallelism", 0, "Maximum concurrent provisioning steps (0 = default)")
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := buildStack(cfg)
	if err != nil {
		return err
	}

	store, err := manifest.NewStore(cfg.Manifest, cfg.Region)
	if err != nil {
		return err
	}
	if existing, err := store.Read(ctx); err == nil && len(existing.Resources) > 0 {
		return fmt.Errorf("manifest %s already records %d resources; run 'webfleet down' first", cfg.Manifest, len(existing.Resources))
	}

	p, err := aws.New(ctx, cfg.Region)
	if err != nil {
		return err
	}

	m := manifest.New(s.Name, s.Region)
	runner := engine.NewRunner()
	if upParallelism > 0 {
		runner.Parallelism = upParallelism
	}
	runner.Callback = func(ev engine.Event) {
		switch ev.Status {
		case "started":
			fmt.Printf("  %s...\n", ev.Step)
		case "completed":
			fmt.Printf("  %s done (%s)\n", ev.Step, ev.Duration.Round(time.Millisecond))
		case "failed":
			fmt.Printf("  %s FAILED: %v\n", ev.Step, ev.Err)
		case "skipped":
			fmt.Printf("  %s skipped\n", ev.Step)
		}
	}

	fmt.Printf("Provisioning stack %s in %s...\n", s.Name, s.Region)
	runErr := runner.Run(ctx, p.CreateSteps(s, m))

	// Persist whatever was created, even on failure, so down can unwind
	// a partial stack.
	collectOutputs(s, m)
	if err := store.Write(ctx, m); err != nil {
		if runErr != nil {
			logging.Error("failed to write manifest after failed run", "error", err)
			return runErr
		}
		return err
	}
	if runErr != nil {
		return fmt.Errorf("provisioning failed (partial resources recorded in %s): %w", cfg.Manifest, runErr)
	}

	fmt.Printf("\nStack %s is up. %d resources created.\n", s.Name, len(m.Resources))
	fmt.Println("\nOutputs:")
	for _, name := range sortedKeys(m.Outputs) {
		fmt.Printf("  %s = %s\n", name, m.Outputs[name])
	}
	return nil
}
