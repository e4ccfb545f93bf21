package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"nftlend/storage"
)

// Environment variables overriding file settings.
const (
	EnvEnvironment = "NFTLEND_ENV"
	EnvAuthSecret  = "NFTLEND_AUTH_SECRET"
)

type Config struct {
	ListenAddress     string    `toml:"ListenAddress"`
	DataDir           string    `toml:"DataDir"`
	StorageBackend    string    `toml:"StorageBackend"`
	Environment       string    `toml:"Environment"`
	SeedFile          string    `toml:"SeedFile"`
	ProgramID         string    `toml:"ProgramID"`
	MetadataProgramID string    `toml:"MetadataProgramID"`
	AdminAddress      string    `toml:"AdminAddress"`
	Auth              Auth      `toml:"auth"`
	RateLimit         RateLimit `toml:"rate_limit"`
	Logging           Logging   `toml:"logging"`
	Indexer           Indexer   `toml:"indexer"`
	Policy            Policy    `toml:"policy"`
	Pauses            Pauses    `toml:"pauses"`
}

// Default returns the configuration used for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress:     ":8645",
		DataDir:           "./nftlend-data",
		StorageBackend:    storage.BackendLevelDB,
		Environment:       "local",
		ProgramID:         DefaultProgramID,
		MetadataProgramID: DefaultMetadataProgramID,
		Auth: Auth{
			Issuer: "nftlend",
		},
		RateLimit: RateLimit{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Indexer: Indexer{
			Driver: IndexerSQLite,
		},
		Policy: Policy{
			AllowLateRepayment: true,
			ClampHireExtension: true,
		},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
		}
	}

	cfg.applyEnv()
	cfg.normalize(filepath.Dir(path))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		cfg.Environment = env
	}
	if secret := os.Getenv(EnvAuthSecret); secret != "" {
		cfg.Auth.Secret = secret
	}
}

func (cfg *Config) normalize(baseDir string) {
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	cfg.Environment = strings.TrimSpace(cfg.Environment)
	cfg.ProgramID = strings.TrimSpace(cfg.ProgramID)
	cfg.MetadataProgramID = strings.TrimSpace(cfg.MetadataProgramID)
	cfg.AdminAddress = strings.TrimSpace(cfg.AdminAddress)
	cfg.DataDir = resolve(baseDir, strings.TrimSpace(cfg.DataDir))
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = storage.BackendLevelDB
	}
	cfg.SeedFile = resolve(baseDir, strings.TrimSpace(cfg.SeedFile))
	cfg.Logging.File = resolve(baseDir, strings.TrimSpace(cfg.Logging.File))
	cfg.Indexer.Driver = strings.ToLower(strings.TrimSpace(cfg.Indexer.Driver))
	if cfg.Indexer.Driver == "" {
		cfg.Indexer.Driver = IndexerSQLite
	}
	if cfg.Indexer.Driver == IndexerSQLite && strings.TrimSpace(cfg.Indexer.DSN) == "" {
		cfg.Indexer.DSN = filepath.Join(cfg.DataDir, "events.db")
	}
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" || baseDir == "." {
		return path
	}
	return filepath.Join(baseDir, path)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
