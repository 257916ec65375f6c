package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Analysis struct {
		Languages []string `yaml:"languages"`
		RuleFiles []string `yaml:"rule_files"` // extra pattern-catalog rules
		Workers   int      `yaml:"workers"`    // 0 = NumCPU
	} `yaml:"analysis"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Analysis.Languages = []string{"c", "cpp"}
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config; a missing file falls back to defaults.
	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if db := os.Getenv("RELEX_DB_PATH"); db != "" {
		cfg.Storage.DBPath = db
	}
	if workers := os.Getenv("RELEX_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Analysis.Workers = n
		}
	}
	if rules := os.Getenv("RELEX_RULE_FILE"); rules != "" {
		cfg.Analysis.RuleFiles = append(cfg.Analysis.RuleFiles, rules)
	}
}
