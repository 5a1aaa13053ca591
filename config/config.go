// Package config holds the calculator preferences: defaults, then an
// optional TOML file, then RPNCALC_* environment variables (command line
// flags are applied last by main).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/duration"
	"fortio.org/log"
	"fortio.org/struct2env"
	"github.com/BurntSushi/toml"
)

// EnvPrefix is the prefix of the environment variables.
const EnvPrefix = "RPNCALC_"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// HistoryFile is the REPL line history, "~/" is the home directory.
	HistoryFile string `toml:"history_file"`
	// FunctionsFile persists user functions across sessions, empty for none.
	FunctionsFile string `toml:"functions_file"`
	// ScriptDir is where run_script files are read from.
	ScriptDir string `toml:"script_dir"`
	// PlotFile gets the canvas after batch runs (.png or .bmp), empty for none.
	PlotFile       string `toml:"plot_file"`
	PlotWidth      int    `toml:"plot_width"`
	PlotHeight     int    `toml:"plot_height"`
	MaxDepth       int    `toml:"max_depth"`
	RefreshDelay   string `toml:"refresh_delay"` // fortio.org/duration syntax, e.g. "2ms".
	UnrestrictedIO bool   `toml:"unrestricted_io"`
	TokenCacheSize int    `toml:"token_cache_size"`
}

func Default() Config {
	return Config{
		HistoryFile:    "~/.rpncalc_history",
		FunctionsFile:  "~/.rpncalc_functions",
		ScriptDir:      ".",
		PlotWidth:      512,
		PlotHeight:     512,
		MaxDepth:       10_000,
		RefreshDelay:   "1ms",
		TokenCacheSize: 256,
	}
}

// Load returns the defaults overridden by the TOML file at path (if not
// empty) and then by the environment.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return c, err
		}
	}
	if err := c.FromEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Decode reads TOML preferences over c. Unknown keys are errors.
func (c *Config) Decode(r io.Reader) error {
	md, err := toml.NewDecoder(r).Decode(c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) LoadFile(path string) error {
	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return err
	}
	defer f.Close()
	if err = c.Decode(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.LogVf("Loaded preferences from %s", path)
	return nil
}

// FromEnv applies the RPNCALC_* environment variables.
func (c *Config) FromEnv() error {
	errs := struct2env.SetFromEnv(EnvPrefix, c)
	if len(errs) > 0 {
		return fmt.Errorf("%w from env: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.PlotWidth <= 0 || c.PlotHeight <= 0 {
		errs = append(errs, fmt.Errorf("plot size %dx%d", c.PlotWidth, c.PlotHeight))
	}
	if c.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("max depth %d", c.MaxDepth))
	}
	if _, err := c.Refresh(); err != nil {
		errs = append(errs, err)
	}
	if ext := strings.ToLower(filepath.Ext(c.PlotFile)); c.PlotFile != "" && ext != ".png" && ext != ".bmp" {
		errs = append(errs, fmt.Errorf("plot file %q must be .png or .bmp", c.PlotFile))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Refresh is the parsed RefreshDelay.
func (c Config) Refresh() (time.Duration, error) {
	if c.RefreshDelay == "" {
		return 0, nil
	}
	d, err := duration.Parse(c.RefreshDelay)
	if err != nil {
		return 0, fmt.Errorf("refresh delay %q: %w", c.RefreshDelay, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative refresh delay %q", c.RefreshDelay)
	}
	return d, nil
}

// ExpandHome replaces a leading "~/" by the user's home directory.
func ExpandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Couldn't get user home dir: %v", err)
		return rest
	}
	return filepath.Join(home, rest)
}

// EnvHelp documents the environment variables with their current values.
func EnvHelp(w io.Writer, c Config) {
	res, _ := struct2env.StructToEnvVars(c)
	str := struct2env.ToShellWithPrefix(EnvPrefix, res, true)
	fmt.Fprintln(w, "# rpncalc environment variables:")
	fmt.Fprint(w, str)
}
