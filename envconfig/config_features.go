// config_features.go - Feature-Flags
//
// Dieses Modul enthaelt:
// - NoProgress: Fortschrittsanzeige abschalten
// - Workers: Parallele Shard-Writer
package envconfig

var (
	// NoProgress deaktiviert die Fortschrittsanzeige beim Schreiben
	NoProgress = Bool("PTCONVERT_NOPROGRESS")

	// Workers begrenzt die parallel geschriebenen Shards, 0 = automatisch
	Workers = Uint("PTCONVERT_WORKERS", 0)
)
