// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs, initLogging
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rlinf/ptconvert/envconfig"
	"github.com/rlinf/ptconvert/logutil"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-28s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// initLogging - Richtet den Standard-Logger auf stderr ein
func initLogging(*cobra.Command, []string) {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "ptconvert",
		Short:         "Convert PyTorch checkpoints to safetensors",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: initLogging,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	convertCmd := newConvertCmd()
	showCmd := newShowCmd()
	inspectCmd := newInspectCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	for _, cmd := range []*cobra.Command{convertCmd, showCmd, inspectCmd} {
		switch cmd {
		case convertCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["PTCONVERT_DEBUG"],
				envVars["PTCONVERT_MAP_LOCATION"],
				envVars["PTCONVERT_MAX_SHARD_SIZE"],
				envVars["PTCONVERT_STATE_DICT_PATHS"],
				envVars["PTCONVERT_NOPROGRESS"],
				envVars["PTCONVERT_WORKERS"],
			})
		case showCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["PTCONVERT_DEBUG"], envVars["PTCONVERT_MAP_LOCATION"]})
		default:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["PTCONVERT_DEBUG"]})
		}
	}

	rootCmd.AddCommand(
		convertCmd,
		showCmd,
		inspectCmd,
	)

	return rootCmd
}
