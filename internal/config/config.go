package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"securityprices/internal/validation"
)

type Source struct {
	BaseURL           string `json:"base_url" yaml:"base_url"`
	UserAgent         string `json:"user_agent" yaml:"user_agent"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Output struct {
	Dir        string `json:"dir" yaml:"dir"`
	OnMismatch string `json:"on_mismatch" yaml:"on_mismatch"`
}

type Run struct {
	MaxConcurrency  int `json:"max_concurrency" yaml:"max_concurrency"`
	CacheTTLSeconds int `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	CacheMaxItems   int `json:"cache_max_items" yaml:"cache_max_items"`
}

type Config struct {
	Source  Source     `json:"source" yaml:"source"`
	Output  Output     `json:"output" yaml:"output"`
	Run     Run        `json:"run" yaml:"run"`
	Batches [][]string `json:"batches" yaml:"batches"`
}

// Default returns the reference run: six fixed batches, one request each,
// processed sequentially into the working directory.
func Default() Config {
	return Config{
		Source: Source{
			BaseURL:   "https://www.cnbc.com/quotes/?symbol=",
			UserAgent: "security-prices/1.0",
		},
		Output: Output{Dir: ".", OnMismatch: "abort"},
		Run:    Run{MaxConcurrency: 1, CacheMaxItems: 1000},
		Batches: [][]string{
			{"VTI", "VOO", "VTV", "VUG", "VO", "VOE", "VOT", "VB",
				"VBR", "VBK", "VXUS", "VEA", "VWO", "VSS", "VGT",
				"VHT", "VNQ", "BND", "VCSH", "VCIT", "VCLT"},
			{"SPTM", "SPLG", "SPYV", "SPYG", "SPMD", "MDYV",
				"MDYG", "SPSM", "SLYV", "SLYG", "SPDW", "EFV",
				"EFG", "SPEM", "GWX", "USRT", "HAUZ", "SPAB",
				"IAGG", "SPSB", "SPIB", "SPLB", "HYLB"},
			{"SWTSX", "SCHB", "VIIIX", "SWPPX", "SWLVX", "SCHV",
				"SWLGX", "SCHG", "SWMCX", "SCHM", "MDYV", "MDYG",
				"SWSSX", "SCHA", "SLYV", "SLYG", "SWISX", "SCHF",
				"SCHE", "SCHC", "FNDF", "FNDE", "FNDC", "SCHH",
				"RWX", "SWAGX", "SCHZ", "SWSBX", "SCHO", "SCHJ",
				"SCHR", "SCHI", "SWRSX", "SCHP", "SPTL", "SCHQ"},
			{"VTSAX", "VTI", "VFIAX", "VOO", "VIMAX", "VO",
				"VSMAX", "VB", "VTIAX", "VXUS", "VTMGX", "VEA",
				"VEMAX", "VWO", "VSS", "VGSLX", "VNQ", "VHT", "VGT",
				"VASGX", "VBTLX", "BND", "VWEHX"},
			{"FZROX", "FSKAX", "FNILX", "FXAIX", "FLCOX",
				"FSPGX", "FZIPX", "FSMAX", "FSMDX", "FSSNX",
				"FZILX", "FTIHX", "FSGGX", "FSPSX", "FPADX",
				"FSRNX", "FXNAX", "FNSOX", "FUAMX", "FNBGX",
				"FIPDX"},
			{"FXAIX", "FSMAX", "FSPSX", "DFEMX", "CSRSX",
				"VBTIX", "SPHIX"},
		},
	}
}

// Load reads config from path, as YAML when the extension is .yaml or .yml
// and JSON otherwise. If path is empty it looks for config.json then
// config.yaml in the working directory, and falls back to defaults.
// Environment variables override select fields afterwards.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

// Validate rejects malformed symbols and unknown mismatch policies.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Source.BaseURL) == "" {
		return errors.New("source.base_url is empty")
	}
	switch c.Output.OnMismatch {
	case "abort", "skip":
	default:
		return fmt.Errorf("output.on_mismatch must be abort or skip, got %q", c.Output.OnMismatch)
	}
	if c.Run.MaxConcurrency < 0 {
		return fmt.Errorf("run.max_concurrency must not be negative, got %d", c.Run.MaxConcurrency)
	}
	return validation.Batches(c.Batches)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("QUOTES_BASE_URL"); v != "" { cfg.Source.BaseURL = v }
	if v := os.Getenv("QUOTES_USER_AGENT"); v != "" { cfg.Source.UserAgent = v }
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Source.RequestTimeoutSec = x }
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" { cfg.Output.Dir = v }
	if v := os.Getenv("ON_MISMATCH"); v != "" { cfg.Output.OnMismatch = strings.ToLower(strings.TrimSpace(v)) }
	if v := os.Getenv("MAX_CONCURRENCY"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Run.MaxConcurrency = x }
	}
	if v := os.Getenv("CACHE_TTL_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Run.CacheTTLSeconds = x }
	}
	if v := os.Getenv("CACHE_MAX_ITEMS"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Run.CacheMaxItems = x }
	}
}
