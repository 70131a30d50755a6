// cmd_show.go - Show Command und Checkpoint-Uebersicht
// Hauptfunktionen: ShowHandler, showSummary
package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rlinf/ptconvert/convert"
	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// ShowHandler - Zeigt die Mappings eines Checkpoints mit Tensor-Anzahl und Groesse
func ShowHandler(cmd *cobra.Command, args []string) error {
	depth, _ := cmd.Flags().GetInt("depth")
	mapLocation, _ := cmd.Flags().GetString("map-location")

	root, err := checkpoint.Load(args[0], mapLocation)
	if err != nil {
		return err
	}

	summaries := convert.Summarize(root, depth)
	if len(summaries) == 0 {
		return fmt.Errorf("checkpoint root is a %s, not a mapping", root.Kind())
	}

	showSummary(cmd.OutOrStdout(), summaries)
	return nil
}

// showSummary - Tabelle mit PATH, TENSORS, SIZE und STATE DICT
func showSummary(w io.Writer, summaries []convert.Summary) {
	var data [][]string
	var found bool
	for _, s := range summaries {
		path := s.Path
		if path == "" {
			path = "(root)"
		}

		var stateDict string
		if s.StateDict {
			stateDict = "yes"
			found = true
		}

		data = append(data, []string{
			truncatePath(path),
			humanize.Comma(int64(s.Tensors)),
			humanize.IBytes(uint64(s.Size)),
			stateDict,
		})
	}

	tableRender(w, []string{"PATH", "TENSORS", "SIZE", "STATE DICT"}, data)

	if !found {
		fmt.Fprintln(w, "\nNo flat state dict found at this depth, try --depth -1.")
	}
}
