// Package config reads bindforge.toml, the project file that names the
// platform ASTs to bind and the shape of the generated C#.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"bindforge/internal/platform"
)

// FileName is the project file searched for upward from the working directory.
const FileName = "bindforge.toml"

// Config is the decoded project file. Relative paths are resolved against
// the directory of the file by Load.
type Config struct {
	Bindings  Bindings   `toml:"bindings"`
	Output    Output     `toml:"output"`
	Run       Run        `toml:"run"`
	Verify    Verify     `toml:"verify"`
	Platforms []Platform `toml:"platform"`

	// Path is the file the config came from; empty for Default.
	Path string `toml:"-"`
}

type Bindings struct {
	Namespace           string   `toml:"namespace"`
	Class               string   `toml:"class"`
	Library             string   `toml:"library"`
	FunctionPointers    bool     `toml:"function_pointers"`
	Nullables           bool     `toml:"nullables"`
	FileScopedNamespace bool     `toml:"file_scoped_namespace"`
	Usings              []string `toml:"usings"`
	ExtensibleEnums     bool     `toml:"extensible_enums"`
	GenerateRuntime     bool     `toml:"generate_runtime"`
}

type Output struct {
	Dir string `toml:"dir"`
}

type Run struct {
	// Jobs limits concurrent platform loading; 0 means GOMAXPROCS.
	Jobs int `toml:"jobs"`
	// Cache enables the on-disk AST cache.
	Cache bool `toml:"cache"`
	// CacheDir overrides the cache location ($XDG_CACHE_HOME/bindforge).
	CacheDir string `toml:"cache_dir"`
}

type Verify struct {
	// Command is run with the output directory as its working directory;
	// empty disables verification.
	Command []string `toml:"command"`
}

// Platform is one target triple and the AST document produced for it.
type Platform struct {
	Triple string `toml:"triple"`
	AST    string `toml:"ast"`
}

// Default returns the configuration used when no project file is present.
func Default() Config {
	return Config{
		Bindings: Bindings{
			Namespace:           "Bindings",
			Class:               "Native",
			FunctionPointers:    true,
			Nullables:           true,
			FileScopedNamespace: true,
		},
		Output: Output{Dir: "."},
		Run:    Run{Cache: true},
	}
}

// Find walks up from startDir to locate bindforge.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if !meta.IsDefined("bindings") {
		return Config{}, fmt.Errorf("%s: missing [bindings]", path)
	}
	if !meta.IsDefined("bindings", "library") || strings.TrimSpace(cfg.Bindings.Library) == "" {
		return Config{}, fmt.Errorf("%s: missing [bindings].library", path)
	}
	if meta.IsDefined("bindings", "class") && strings.TrimSpace(cfg.Bindings.Class) == "" {
		return Config{}, fmt.Errorf("%s: [bindings].class is empty", path)
	}
	if !meta.IsDefined("platform") || len(cfg.Platforms) == 0 {
		return Config{}, fmt.Errorf("%s: at least one [[platform]] is required", path)
	}

	cfg.Path = path
	root := filepath.Dir(path)
	cfg.Output.Dir = resolve(root, cfg.Output.Dir)
	if cfg.Run.CacheDir != "" {
		cfg.Run.CacheDir = resolve(root, cfg.Run.CacheDir)
	}
	for i := range cfg.Platforms {
		cfg.Platforms[i].AST = resolve(root, cfg.Platforms[i].AST)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadNearest finds the project file from startDir upward and loads it.
// ok is false when there is none; cfg is then Default.
func LoadNearest(startDir string) (cfg Config, ok bool, err error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), ok, err
	}
	cfg, err = Load(path)
	return cfg, true, err
}

// Validate checks the values that do not depend on how they were supplied,
// so flags that override file values are validated the same way.
func (c *Config) Validate() error {
	if c.Run.Jobs < 0 {
		return fmt.Errorf("[run].jobs must not be negative, got %d", c.Run.Jobs)
	}
	seen := make(map[string]int, len(c.Platforms))
	for i, p := range c.Platforms {
		if strings.TrimSpace(p.Triple) == "" {
			return fmt.Errorf("platform[%d]: missing triple", i)
		}
		if _, err := platform.Parse(p.Triple); err != nil {
			return fmt.Errorf("platform[%d]: %w", i, err)
		}
		if strings.TrimSpace(p.AST) == "" {
			return fmt.Errorf("platform[%d]: missing ast", i)
		}
		if prev, dup := seen[p.Triple]; dup {
			return fmt.Errorf("platform[%d]: triple %s already listed as platform[%d]", i, p.Triple, prev)
		}
		seen[p.Triple] = i
	}
	return nil
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}
