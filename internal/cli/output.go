package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/webfleet-io/webfleet/internal/manifest"
)

var outputJSON bool

var outputCmd = &cobra.Command{
	Use:   "output [name]",
	Short: "Show output values from the manifest",
	Long: `Reads output values from the manifest written by 'webfleet up'.

If no name is given, all outputs are displayed. If a name is given,
only that output's value is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOutput,
}

func init() {
	outputCmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
}

func runOutput(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := manifest.NewStore(cfg.Manifest, cfg.Region)
	if err != nil {
		return err
	}

	m, err := store.Read(cmd.Context())
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return fmt.Errorf("no manifest found; run 'webfleet up' first")
		}
		return err
	}

	if len(args) > 0 {
		name := args[0]
		val, ok := m.Outputs[name]
		if !ok {
			return fmt.Errorf("output %q not found", name)
		}
		if outputJSON {
			data, _ := json.Marshal(val)
			fmt.Println(string(data))
		} else {
			fmt.Println(val)
		}
		return nil
	}

	if len(m.Outputs) == 0 {
		fmt.Println("No outputs recorded.")
		return nil
	}

	if outputJSON {
		data, _ := json.MarshalIndent(m.Outputs, "", "  ")
		fmt.Println(string(data))
	} else {
		for _, k := range sortedKeys(m.Outputs) {
			fmt.Printf("%s = %s\n", k, m.Outputs[k])
		}
	}
	return nil
}
