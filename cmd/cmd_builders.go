// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newConvertCmd, newShowCmd, newInspectCmd
package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rlinf/ptconvert/convert"
	"github.com/rlinf/ptconvert/envconfig"
)

// dtypeChoices - Erlaubte Werte fuer --dtype
var dtypeChoices = []string{"auto", "fp32", "bf16", "fp16"}

// newConvertCmd - Erstellt den convert Command
func newConvertCmd() *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a PyTorch checkpoint to safetensors",
		Long: `Convert a PyTorch checkpoint to safetensors.

The state dict is located automatically by probing common checkpoint layouts
(e.g. model_state_dict, state_dict, actor.state_dict) unless --state-dict-key is
given. Tensors are written as one file with --single-file, otherwise as shards
with a <name>.safetensors.index.json.`,
		Args: cobra.NoArgs,
		RunE: ConvertHandler,
	}

	convertCmd.Flags().String("input-pt", "", "Path to the PyTorch checkpoint (.pt, .pth, .bin)")
	convertCmd.Flags().String("output-dir", "", "Directory the safetensors files are written to")
	convertCmd.Flags().String("output-name", convert.DefaultName, "Base name of the output files")
	convertCmd.Flags().String("state-dict-key", "", "Dot path of the state dict inside the checkpoint (e.g. actor.model_state_dict)")
	convertCmd.Flags().StringArray("strip-prefix", nil, "Prefix removed from every key, can be repeated (e.g. module.)")
	convertCmd.Flags().String("dtype", "auto", "Cast floating point tensors to this dtype ("+strings.Join(dtypeChoices, ", ")+")")
	convertCmd.Flags().Bool("single-file", false, "Write a single .safetensors file instead of shards")
	convertCmd.Flags().String("max-shard-size", envconfig.MaxShardSize(), "Maximum size of one shard (e.g. 4GB, 500MB)")
	convertCmd.Flags().String("map-location", envconfig.MapLocation(), "Device tensors are mapped to when loading")

	convertCmd.MarkFlagRequired("input-pt")   //nolint:errcheck
	convertCmd.MarkFlagRequired("output-dir") //nolint:errcheck

	return convertCmd
}

// newShowCmd - Erstellt den show Command
func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show CHECKPOINT",
		Short: "Show the structure of a PyTorch checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  ShowHandler,
	}

	showCmd.Flags().Int("depth", 2, "Maximum nesting depth to list, -1 for no limit")
	showCmd.Flags().String("map-location", envconfig.MapLocation(), "Device tensors are mapped to when loading")

	return showCmd
}

// newInspectCmd - Erstellt den inspect Command
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the tensors of a .safetensors file or index",
		Args:  cobra.ExactArgs(1),
		RunE:  InspectHandler,
	}
}
