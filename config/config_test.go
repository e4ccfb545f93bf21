package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nftlend/crypto"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.ListenAddress != ":8645" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if !cfg.Policy.AllowLateRepayment || !cfg.Policy.ClampHireExtension {
		t.Fatalf("policy defaults not applied: %+v", cfg.Policy)
	}
	if cfg.Indexer.Driver != IndexerSQLite {
		t.Fatalf("unexpected indexer driver %q", cfg.Indexer.Driver)
	}
	if !strings.HasSuffix(cfg.Indexer.DSN, "events.db") {
		t.Fatalf("sqlite DSN not derived: %q", cfg.Indexer.DSN)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.DataDir != cfg.DataDir {
		t.Fatalf("reload changed data dir: %q != %q", again.DataDir, cfg.DataDir)
	}
}

func TestLoadOverridesAndPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	admin := crypto.AddressFromLabel("admin")
	writeFile(t, path, `
ListenAddress = "127.0.0.1:9000"
DataDir = "data"
AdminAddress = "`+admin.String()+`"

[policy]
AllowLateRepayment = false

[pauses]
Hires = true
`)
	t.Setenv(EnvEnvironment, "staging")
	t.Setenv(EnvAuthSecret, strings.Repeat("s", MinAuthSecretBytes))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Fatalf("env override ignored: %q", cfg.Environment)
	}
	if cfg.Auth.Secret == "" {
		t.Fatalf("secret override ignored")
	}
	if cfg.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("data dir not resolved: %q", cfg.DataDir)
	}
	if cfg.Policy.AllowLateRepayment {
		t.Fatalf("expected late repayment disabled")
	}
	if !cfg.Policy.ClampHireExtension {
		t.Fatalf("unset policy field lost its default")
	}
	if !cfg.Pauses.IsPaused("hires") || cfg.Pauses.IsPaused("loans") {
		t.Fatalf("unexpected pauses %+v", cfg.Pauses)
	}
	if cfg.Admin() != admin {
		t.Fatalf("admin mismatch")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "Bogus = 1\n",
		"short secret":  "[auth]\nSecret = \"short\"\n",
		"bad admin":     "AdminAddress = \"not-an-address\"\n",
		"bad driver":    "[indexer]\nDriver = \"mongo\"\n",
		"bad backend":   "StorageBackend = \"rocksdb\"\n",
		"postgres dsn":  "[indexer]\nDriver = \"postgres\"\n",
		"missing burst": "[rate_limit]\nRequestsPerSecond = 5.0\nBurst = 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			writeFile(t, path, body)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestProgramIdentity(t *testing.T) {
	cfg := Default()
	program, err := cfg.Program()
	if err != nil {
		t.Fatalf("program: %v", err)
	}
	if program != crypto.AddressFromLabel(DefaultProgramID) {
		t.Fatalf("label program id not hashed")
	}
	explicit := crypto.AddressFromLabel("explicit")
	cfg.ProgramID = explicit.String()
	if program, err = cfg.Program(); err != nil || program != explicit {
		t.Fatalf("base58 program id not parsed: %v", err)
	}
	if cfg.Admin() != crypto.ZeroAddress {
		t.Fatalf("unset admin should be zero")
	}
}

func TestLoadSeed(t *testing.T) {
	alice := crypto.AddressFromLabel("alice")
	mint := crypto.AddressFromLabel("mint")
	collection := crypto.AddressFromLabel("collection")
	path := filepath.Join(t.TempDir(), "seed.yaml")
	writeFile(t, path, `
balances:
  - address: `+alice.String()+`
    amount: 5000000
tokens:
  - mint: `+mint.String()+`
    owner: `+alice.String()+`
metadata:
  - mint: `+mint.String()+`
    collection: `+collection.String()+`
    sellerFeeBasisPoints: 500
    creators:
      - address: `+alice.String()+`
        share: 100
collections:
  - `+collection.String()+`
`)
	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if len(seed.Balances) != 1 || seed.Balances[0].Amount != 5_000_000 {
		t.Fatalf("unexpected balances %+v", seed.Balances)
	}
	meta, err := seed.Metadata[0].AssetMetadata()
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.Mint != mint || meta.Collection != collection || meta.Creators[0].Address != alice {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestLoadSeedRejectsBadShares(t *testing.T) {
	alice := crypto.AddressFromLabel("alice")
	mint := crypto.AddressFromLabel("mint")
	path := filepath.Join(t.TempDir(), "seed.yaml")
	writeFile(t, path, `
metadata:
  - mint: `+mint.String()+`
    creators:
      - address: `+alice.String()+`
        share: 60
`)
	if _, err := LoadSeed(path); err == nil {
		t.Fatalf("expected share validation error")
	}
}
