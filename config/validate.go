package config

import (
	"fmt"

	"nftlend/crypto"
	"nftlend/storage"
)

// MinAuthSecretBytes is the shortest accepted HMAC secret.
const MinAuthSecretBytes = 32

func (cfg *Config) validate() error {
	if cfg.ListenAddress == "" {
		return fmt.Errorf("config: ListenAddress must not be empty")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	switch cfg.StorageBackend {
	case storage.BackendLevelDB, storage.BackendBolt:
	default:
		return fmt.Errorf("config: unknown StorageBackend %q", cfg.StorageBackend)
	}
	if _, err := cfg.Program(); err != nil {
		return fmt.Errorf("config: ProgramID: %w", err)
	}
	if _, err := cfg.MetadataProgram(); err != nil {
		return fmt.Errorf("config: MetadataProgramID: %w", err)
	}
	if cfg.AdminAddress != "" {
		if _, err := crypto.ParseAddress(cfg.AdminAddress); err != nil {
			return fmt.Errorf("config: AdminAddress: %w", err)
		}
	}
	if cfg.Auth.Secret != "" && len(cfg.Auth.Secret) < MinAuthSecretBytes {
		return fmt.Errorf("auth: secret must be at least %d bytes", MinAuthSecretBytes)
	}
	if cfg.RateLimit.RequestsPerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when a rate is set")
	}
	switch cfg.Indexer.Driver {
	case IndexerSQLite, IndexerDisabled:
	case IndexerPostgres:
		if cfg.Indexer.DSN == "" {
			return fmt.Errorf("indexer: postgres requires a DSN")
		}
	default:
		return fmt.Errorf("indexer: unknown driver %q", cfg.Indexer.Driver)
	}
	return nil
}

// Program resolves the program identity. Values that are not base58
// addresses are treated as labels and hashed.
func (cfg *Config) Program() (crypto.Address, error) {
	return identity(cfg.ProgramID)
}

// MetadataProgram resolves the metadata program identity.
func (cfg *Config) MetadataProgram() (crypto.Address, error) {
	return identity(cfg.MetadataProgramID)
}

// Admin returns the collection admin, or the zero address when unset.
func (cfg *Config) Admin() crypto.Address {
	if cfg.AdminAddress == "" {
		return crypto.ZeroAddress
	}
	addr, err := crypto.ParseAddress(cfg.AdminAddress)
	if err != nil {
		return crypto.ZeroAddress
	}
	return addr
}

func identity(value string) (crypto.Address, error) {
	if value == "" {
		return crypto.ZeroAddress, fmt.Errorf("must not be empty")
	}
	if addr, err := crypto.ParseAddress(value); err == nil {
		return addr, nil
	}
	return crypto.AddressFromLabel(value), nil
}
