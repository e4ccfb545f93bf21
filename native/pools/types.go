package pools

import "nftlend/crypto"

// Derivation seeds.
const (
	CollectionPrefix = "collection"
	PoolPrefix       = "pool"
	VaultPrefix      = "pool_vault"
)

// ModulePools is the pause module guarding pool operations.
const ModulePools = "pools"

// Collection registers a verified collection mint. Only registered
// collections can back a pool.
type Collection struct {
	Authority  crypto.Address
	Collection crypto.Address
	Bump       uint8
}

// Clone returns a copy of the collection.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Pool lends a fixed floor price against any token of its collection.
// Originated and Volume count the loans funded from the vault.
type Pool struct {
	Authority   crypto.Address
	Collection  crypto.Address
	FloorPrice  uint64
	BasisPoints uint32
	Duration    int64
	Originated  uint64
	Volume      uint64
	Bump        uint8
	VaultBump   uint8
}

// Clone returns a copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// PoolTerms are the lending terms of a new pool.
type PoolTerms struct {
	FloorPrice  uint64
	BasisPoints uint32
	Duration    int64
}
