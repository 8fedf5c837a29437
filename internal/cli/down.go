package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/provision/aws"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Destroy the stack",
	Long: `Deletes every resource the manifest records, in reverse creation
order, then removes the manifest. Safe to re-run: resources that are
already gone are skipped.`,
	RunE: runDown,
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := manifest.NewStore(cfg.Manifest, cfg.Region)
	if err != nil {
		return err
	}

	m, err := store.Read(ctx)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			fmt.Println("No manifest found; nothing to destroy.")
			return nil
		}
		return err
	}

	p, err := aws.New(ctx, m.Region)
	if err != nil {
		return err
	}

	fmt.Printf("Destroying stack %s (%d resources)...\n", m.Stack, len(m.Resources))
	if err := p.Destroy(ctx, m); err != nil {
		return fmt.Errorf("destroy failed (manifest kept for retry): %w", err)
	}

	if err := store.Delete(ctx); err != nil {
		return err
	}
	fmt.Printf("\nStack %s is down.\n", m.Stack)
	return nil
}
