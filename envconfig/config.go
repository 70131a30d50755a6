// config.go - Haupt-Konfigurationsfunktionen fuer ptconvert
//
// Dieses Modul enthaelt:
// - LogLevel: Gibt Log-Level zurueck (PTCONVERT_DEBUG)
// - MaxShardSize: Standard fuer --max-shard-size (PTCONVERT_MAX_SHARD_SIZE)
// - MapLocation: Standard fuer --map-location (PTCONVERT_MAP_LOCATION)
// - StateDictPaths: Zusaetzliche Kandidatenpfade (PTCONVERT_STATE_DICT_PATHS)
// - Var: Liest eine Environment-Variable
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Feature-Flags
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rlinf/ptconvert/format"
)

const (
	defaultMaxShardSize = "4GB"
	defaultMapLocation  = "cpu"
)

// mapLocation liest PTCONVERT_MAP_LOCATION ohne Default
var mapLocation = String("PTCONVERT_MAP_LOCATION")

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via PTCONVERT_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("PTCONVERT_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// MaxShardSize gibt die maximale Shard-Groesse als Groessen-String zurueck
// Konfigurierbar via PTCONVERT_MAX_SHARD_SIZE
// Ungueltige Werte werden mit Warnung ignoriert
// Default: 4GB
func MaxShardSize() string {
	s := Var("PTCONVERT_MAX_SHARD_SIZE")
	if s == "" {
		return defaultMaxShardSize
	}

	if _, err := format.ParseBytes(s); err != nil {
		slog.Warn("invalid environment variable, using default", "key", "PTCONVERT_MAX_SHARD_SIZE", "value", s, "default", defaultMaxShardSize)
		return defaultMaxShardSize
	}
	return s
}

// MapLocation gibt das Zielgeraet fuer geladene Tensoren zurueck
// Konfigurierbar via PTCONVERT_MAP_LOCATION
// Default: cpu
func MapLocation() string {
	if s := mapLocation(); s != "" {
		return s
	}
	return defaultMapLocation
}

// StateDictPaths gibt zusaetzliche Kandidatenpfade zurueck
// Konfigurierbar via PTCONVERT_STATE_DICT_PATHS (komma-separiert)
// Diese Pfade werden vor den eingebauten Kandidaten geprueft
func StateDictPaths() []string {
	var paths []string
	for p := range strings.SplitSeq(Var("PTCONVERT_STATE_DICT_PATHS"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
