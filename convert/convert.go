// convert.go - Gesamter Ablauf: Laden, Extrahieren, Normalisieren, Schreiben
// Hauptfunktionen: Options, Convert
package convert

import (
	"fmt"
	"log/slog"

	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// Options describes one conversion run.
type Options struct {
	Input       string
	MapLocation string

	// StateDictKey is an explicit dot path to the state dict
	StateDictKey string
	// Candidates are tried before DefaultCandidates
	Candidates []string

	StripPrefixes []string
	DType         checkpoint.DType

	WriteOptions
}

// Convert loads opts.Input, extracts and normalizes its state dict and writes it as
// safetensors. fn receives one status line per step.
func Convert(opts Options, fn func(status string)) (*Report, error) {
	fn(fmt.Sprintf("[1/4] Loading checkpoint: %s", opts.Input))
	root, err := checkpoint.Load(opts.Input, opts.MapLocation)
	if err != nil {
		return nil, err
	}

	return ConvertCheckpoint(root, opts, fn)
}

// ConvertCheckpoint runs the steps after loading on an already loaded checkpoint.
func ConvertCheckpoint(root checkpoint.Node, opts Options, fn func(status string)) (*Report, error) {
	fn("[2/4] Extracting state_dict")
	sd, err := NewExtractor(opts.Candidates...).Extract(root, opts.StateDictKey)
	if err != nil {
		return nil, err
	}

	normalized, skipped, err := Normalize(sd, NormalizeOptions{
		StripPrefixes: opts.StripPrefixes,
		DType:         opts.DType,
	})
	if err != nil {
		return nil, err
	}
	fn(fmt.Sprintf("[3/4] Prepared tensors: %d keys, skipped non-tensor entries: %d", normalized.Len(), skipped))
	slog.Debug("normalized state dict", "tensors", normalized.Len(), "size", humanSize(normalized.Nbytes()), "dtype", opts.DType)

	report, err := Write(normalized, opts.WriteOptions)
	if err != nil {
		return nil, err
	}
	fn("[4/4] " + report.String())

	return report, nil
}
