package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nftlend/crypto"
	"nftlend/native/common"
)

// Seed describes the initial ledger contents loaded into an empty store.
type Seed struct {
	Balances    []SeedBalance  `yaml:"balances"`
	Tokens      []SeedToken    `yaml:"tokens"`
	Metadata    []SeedMetadata `yaml:"metadata"`
	Collections []string       `yaml:"collections"`
}

type SeedBalance struct {
	Address string `yaml:"address"`
	Amount  uint64 `yaml:"amount"`
}

type SeedToken struct {
	Mint  string `yaml:"mint"`
	Owner string `yaml:"owner"`
}

type SeedCreator struct {
	Address string `yaml:"address"`
	Share   uint8  `yaml:"share"`
}

type SeedMetadata struct {
	Mint                 string        `yaml:"mint"`
	Collection           string        `yaml:"collection"`
	SellerFeeBasisPoints uint16        `yaml:"sellerFeeBasisPoints"`
	Creators             []SeedCreator `yaml:"creators"`
}

// LoadSeed reads and validates a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	var seed Seed
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks every address and royalty schedule in the seed.
func (s *Seed) Validate() error {
	for i, bal := range s.Balances {
		if _, err := crypto.ParseAddress(bal.Address); err != nil {
			return fmt.Errorf("seed: balances[%d]: %w", i, err)
		}
	}
	mints := make(map[string]struct{}, len(s.Tokens))
	for i, tok := range s.Tokens {
		if _, err := crypto.ParseAddress(tok.Mint); err != nil {
			return fmt.Errorf("seed: tokens[%d].mint: %w", i, err)
		}
		if _, err := crypto.ParseAddress(tok.Owner); err != nil {
			return fmt.Errorf("seed: tokens[%d].owner: %w", i, err)
		}
		if _, dup := mints[tok.Mint]; dup {
			return fmt.Errorf("seed: tokens[%d]: duplicate mint %s", i, tok.Mint)
		}
		mints[tok.Mint] = struct{}{}
	}
	for i, meta := range s.Metadata {
		if _, err := meta.toAsset(); err != nil {
			return fmt.Errorf("seed: metadata[%d]: %w", i, err)
		}
	}
	for i, col := range s.Collections {
		if _, err := crypto.ParseAddress(col); err != nil {
			return fmt.Errorf("seed: collections[%d]: %w", i, err)
		}
	}
	return nil
}

// AssetMetadata converts the seed entry into a registry record. The
// metadata address is filled in by the registry.
func (m SeedMetadata) AssetMetadata() (*common.AssetMetadata, error) {
	return m.toAsset()
}

func (m SeedMetadata) toAsset() (*common.AssetMetadata, error) {
	mint, err := crypto.ParseAddress(m.Mint)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	meta := &common.AssetMetadata{
		Mint:                 mint,
		SellerFeeBasisPoints: m.SellerFeeBasisPoints,
	}
	if m.Collection != "" {
		if meta.Collection, err = crypto.ParseAddress(m.Collection); err != nil {
			return nil, fmt.Errorf("collection: %w", err)
		}
	}
	if m.SellerFeeBasisPoints > 10_000 {
		return nil, fmt.Errorf("sellerFeeBasisPoints %d exceeds 10000", m.SellerFeeBasisPoints)
	}
	var total int
	for i, c := range m.Creators {
		addr, err := crypto.ParseAddress(c.Address)
		if err != nil {
			return nil, fmt.Errorf("creators[%d]: %w", i, err)
		}
		total += int(c.Share)
		meta.Creators = append(meta.Creators, common.Creator{Address: addr, Share: c.Share})
	}
	if len(m.Creators) > 0 && total != 100 {
		return nil, fmt.Errorf("creator shares sum to %d, want 100", total)
	}
	return meta, nil
}
