// cmd_convert.go - Convert Command
// Hauptfunktionen: ConvertHandler, convertOptions, newProgress
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rlinf/ptconvert/convert"
	"github.com/rlinf/ptconvert/envconfig"
	"github.com/rlinf/ptconvert/format"
	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// ConvertHandler - Fuehrt die Konvertierung aus und gibt die Schritte auf stdout aus
func ConvertHandler(cmd *cobra.Command, _ []string) error {
	opts, err := convertOptions(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var bar *progressBar
	if !envconfig.NoProgress() && term.IsTerminal(int(os.Stderr.Fd())) {
		bar = newProgress(os.Stderr)
		opts.Progress = bar.Add
	}

	_, err = convert.Convert(*opts, func(status string) {
		// Fortschrittsbalken vor der naechsten Statuszeile abschliessen
		bar.Finish()
		fmt.Fprintln(out, status)
	})
	bar.Finish()
	return err
}

// convertOptions - Liest und prueft die Flags des convert Commands
func convertOptions(cmd *cobra.Command) (*convert.Options, error) {
	flags := cmd.Flags()

	input, _ := flags.GetString("input-pt")
	dir, _ := flags.GetString("output-dir")
	if input == "" || dir == "" {
		return nil, errors.New("--input-pt and --output-dir are required")
	}

	name, _ := flags.GetString("output-name")
	key, _ := flags.GetString("state-dict-key")
	prefixes, _ := flags.GetStringArray("strip-prefix")
	single, _ := flags.GetBool("single-file")
	maxShardSize, _ := flags.GetString("max-shard-size")
	mapLocation, _ := flags.GetString("map-location")

	s, _ := flags.GetString("dtype")
	if !slices.Contains(dtypeChoices, s) {
		return nil, fmt.Errorf("invalid --dtype %q, choose one of %s", s, strings.Join(dtypeChoices, ", "))
	}
	dtype, err := checkpoint.ParseDType(s)
	if err != nil {
		return nil, err
	}

	// vor dem Laden pruefen, das Laden grosser Checkpoints dauert
	if !single {
		if _, err := format.ParseBytes(maxShardSize); err != nil {
			return nil, fmt.Errorf("--max-shard-size: %w", err)
		}
	}

	return &convert.Options{
		Input:         input,
		MapLocation:   mapLocation,
		StateDictKey:  key,
		Candidates:    envconfig.StateDictPaths(),
		StripPrefixes: prefixes,
		DType:         dtype,
		WriteOptions: convert.WriteOptions{
			Dir:          dir,
			Name:         name,
			SingleFile:   single,
			MaxShardSize: maxShardSize,
			Workers:      int(envconfig.Workers()),
		},
	}, nil
}

// progressBar - Byte-Fortschritt beim Schreiben, erstellt beim ersten Aufruf
type progressBar struct {
	w    io.Writer
	once sync.Once
	bar  *progressbar.ProgressBar
	mu   sync.Mutex
	done bool
}

func newProgress(w io.Writer) *progressBar {
	return &progressBar{w: w}
}

// Add - Kann aus mehreren Goroutinen aufgerufen werden
func (p *progressBar) Add(n, total int64) {
	p.once.Do(func() {
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("writing"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionThrottle(progressThrottle),
		)
	})
	p.bar.Add64(n) //nolint:errcheck
}

// Finish - Ohne vorherigen Add-Aufruf ein No-op, auch auf nil
func (p *progressBar) Finish() {
	if p == nil || p.bar == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done {
		p.done = true
		p.bar.Finish() //nolint:errcheck
		fmt.Fprintln(p.w)
	}
}
