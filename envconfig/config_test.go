package envconfig

import (
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"1":     slog.LevelDebug,
		"true":  slog.LevelDebug,
		"2":     slog.Level(-8),
		"3":     slog.Level(-12),
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PTCONVERT_DEBUG", k)
			if i := LogLevel(); i != v {
				t.Errorf("erwartet %v, erhalten %v", v, i)
			}
		})
	}
}

func TestMaxShardSize(t *testing.T) {
	cases := map[string]string{
		"":       "4GB",
		"512MB":  "512MB",
		"'1GiB'": "1GiB",
		" 2048 ": "2048",
		"lots":   "4GB",
		"4XB":    "4GB",
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PTCONVERT_MAX_SHARD_SIZE", k)
			if s := MaxShardSize(); s != v {
				t.Errorf("erwartet %q, erhalten %q", v, s)
			}
		})
	}
}

func TestMapLocation(t *testing.T) {
	t.Setenv("PTCONVERT_MAP_LOCATION", "")
	if s := MapLocation(); s != "cpu" {
		t.Errorf("erwartet cpu, erhalten %q", s)
	}

	t.Setenv("PTCONVERT_MAP_LOCATION", "\"cuda:0\"")
	if s := MapLocation(); s != "cuda:0" {
		t.Errorf("erwartet cuda:0, erhalten %q", s)
	}
}

func TestStateDictPaths(t *testing.T) {
	cases := map[string][]string{
		"":                            nil,
		"ema":                         {"ema"},
		"ema.state_dict, generator ,": {"ema.state_dict", "generator"},
		",,":                          nil,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PTCONVERT_STATE_DICT_PATHS", k)
			if diff := cmp.Diff(v, StateDictPaths()); diff != "" {
				t.Errorf("Pfade falsch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"true":  true,
		"false": false,
		"1":     true,
		"0":     false,
		"yes":   true,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PTCONVERT_NOPROGRESS", k)
			if b := NoProgress(); b != v {
				t.Errorf("%s: erwartet %t, erhalten %t", k, v, b)
			}
		})
	}
}

func TestUint(t *testing.T) {
	cases := map[string]uint{
		"":    0,
		"4":   4,
		"-1":  0,
		"abc": 0,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PTCONVERT_WORKERS", k)
			if i := Workers(); i != v {
				t.Errorf("%s: erwartet %d, erhalten %d", k, v, i)
			}
		})
	}
}

func TestValues(t *testing.T) {
	t.Setenv("PTCONVERT_MAP_LOCATION", "cuda")
	vals := Values()
	if vals["PTCONVERT_MAP_LOCATION"] != "cuda" {
		t.Errorf("erwartet cuda, erhalten %q", vals["PTCONVERT_MAP_LOCATION"])
	}
	for k, v := range AsMap() {
		if k != v.Name || v.Description == "" {
			t.Errorf("unvollstaendiger Eintrag %q: %+v", k, v)
		}
	}
}
