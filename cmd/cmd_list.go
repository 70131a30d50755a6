// cmd_list.go - Inspect Command: Tensoren einer safetensors-Ausgabe auflisten
// Hauptfunktionen: InspectHandler, inspectRows
package cmd

import (
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rlinf/ptconvert/fs/safetensors"
)

// InspectHandler - Listet Tensoren einer .safetensors-Datei oder eines Index auf
func InspectHandler(cmd *cobra.Command, args []string) error {
	header, data, metadata, err := inspectRows(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	tableRender(w, header, data)
	printMetadata(w, metadata)
	return nil
}

// inspectRows - Liest Header aller beteiligten Dateien und baut die Tabellenzeilen
func inspectRows(path string) (header []string, data [][]string, metadata map[string]string, err error) {
	if !strings.HasSuffix(path, ".index.json") {
		f, err := safetensors.Open(path)
		if err != nil {
			return nil, nil, nil, err
		}

		var total int64
		for _, name := range f.Names() {
			info, _ := f.Info(name)
			data = append(data, tensorRow(name, info))
			total += info.Size()
		}
		metadata = maps.Clone(f.Metadata())
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata["tensors"] = humanize.Comma(int64(len(data)))
		metadata["total_size"] = humanize.IBytes(uint64(total))
		return []string{"NAME", "DTYPE", "SHAPE", "SIZE"}, data, metadata, nil
	}

	index, err := safetensors.ReadIndex(path)
	if err != nil {
		return nil, nil, nil, err
	}

	dir := filepath.Dir(path)
	files := make(map[string]*safetensors.File)
	for pair := index.WeightMap.Oldest(); pair != nil; pair = pair.Next() {
		f, ok := files[pair.Value]
		if !ok {
			f, err = safetensors.Open(filepath.Join(dir, pair.Value))
			if err != nil {
				return nil, nil, nil, err
			}
			files[pair.Value] = f
		}

		info, ok := f.Info(pair.Key)
		if !ok {
			return nil, nil, nil, fmt.Errorf("%s: tensor %q listed in index but missing in %s", path, pair.Key, pair.Value)
		}
		data = append(data, append(tensorRow(pair.Key, info), pair.Value))
	}

	metadata = make(map[string]string)
	for _, f := range files {
		maps.Copy(metadata, f.Metadata())
	}
	metadata["shards"] = fmt.Sprint(len(files))
	metadata["tensors"] = humanize.Comma(int64(len(data)))
	metadata["total_size"] = humanize.IBytes(uint64(index.Metadata.TotalSize))
	return []string{"NAME", "DTYPE", "SHAPE", "SIZE", "FILE"}, data, metadata, nil
}

func tensorRow(name string, info safetensors.TensorInfo) []string {
	return []string{truncatePath(name), info.DType, formatShape(info.Shape), humanize.IBytes(uint64(info.Size()))}
}

// printMetadata - Metadaten sortiert nach Schluessel
func printMetadata(w io.Writer, metadata map[string]string) {
	fmt.Fprintln(w)
	for _, k := range slices.Sorted(maps.Keys(metadata)) {
		fmt.Fprintf(w, "  %-12s %s\n", k, metadata[k])
	}
}
