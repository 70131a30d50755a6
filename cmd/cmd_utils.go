// cmd_utils.go - Gemeinsame Hilfsfunktionen
// Hauptfunktionen: tableRender, formatShape, truncatePath
package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
)

const (
	progressThrottle = 100 * time.Millisecond
	// maxPathWidth begrenzt Pfad-Spalten in Tabellen
	maxPathWidth = 80
)

// tableRender - Gibt Zeilen als Tabelle ohne Rahmen aus
func tableRender(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(rows)
	table.Render()
}

// formatShape - Formatiert eine Shape wie [4096, 4096]
func formatShape(shape []int) string {
	s := make([]string, len(shape))
	for i, d := range shape {
		s[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// truncatePath - Kuerzt lange Pfade auf maxPathWidth Zeichen
func truncatePath(s string) string {
	if runewidth.StringWidth(s) <= maxPathWidth {
		return s
	}
	return runewidth.Truncate(s, maxPathWidth, "...")
}
