package config

import "strings"

// Labels hashed into the default program identities.
const (
	DefaultProgramID         = "nftlend.program"
	DefaultMetadataProgramID = "nftlend.metadata"
)

// Indexer drivers.
const (
	IndexerSQLite   = "sqlite"
	IndexerPostgres = "postgres"
	IndexerDisabled = "none"
)

// Auth configures the HMAC secret used to verify caller tokens.
type Auth struct {
	Secret string `toml:"Secret"`
	Issuer string `toml:"Issuer"`
}

// RateLimit bounds requests per client.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Logging configures the structured logger.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Indexer selects the event history store.
type Indexer struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// Policy holds the operator choices the protocol leaves open.
type Policy struct {
	AllowLateRepayment bool `toml:"AllowLateRepayment"`
	ClampHireExtension bool `toml:"ClampHireExtension"`
}

type Pauses struct {
	Loans   bool `toml:"Loans"`
	Options bool `toml:"Options"`
	Hires   bool `toml:"Hires"`
	Pools   bool `toml:"Pools"`
}

// IsPaused reports whether the named module is paused.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case "loans":
		return p.Loans
	case "options":
		return p.Options
	case "hires":
		return p.Hires
	case "pools":
		return p.Pools
	default:
		return false
	}
}
