package crypto

import (
	"errors"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
)

// Address identifies an account, a mint or a program. Collateral identities,
// wallets and derived program accounts all share the 32-byte ed25519 space.
type Address = solana.PublicKey

// PrivateKey is an ed25519 signing key in the same encoding as Address.
type PrivateKey = solana.PrivateKey

// ZeroAddress is the unset address.
var ZeroAddress Address

var errEmptyAddress = errors.New("crypto: empty address")

// ParseAddress decodes a base58 address.
func ParseAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ZeroAddress, errEmptyAddress
	}
	addr, err := solana.PublicKeyFromBase58(trimmed)
	if err != nil {
		return ZeroAddress, fmt.Errorf("crypto: invalid address %q: %w", trimmed, err)
	}
	return addr, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(raw string) Address {
	addr, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressFromLabel returns a deterministic address for a well-known label.
// It is used for program identifiers that have no key material behind them.
func AddressFromLabel(label string) Address {
	return solana.PublicKeyFromBytes(ethcrypto.Keccak256([]byte(label)))
}

// DeriveProgramAddress finds the off-curve address owned by programID for the
// supplied seeds, together with the bump that makes it valid.
func DeriveProgramAddress(programID Address, seeds ...[]byte) (Address, uint8, error) {
	if programID.IsZero() {
		return ZeroAddress, 0, errors.New("crypto: program id required")
	}
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return ZeroAddress, 0, fmt.Errorf("crypto: derive program address: %w", err)
	}
	return addr, bump, nil
}

// GeneratePrivateKey creates a fresh ed25519 key.
func GeneratePrivateKey() (PrivateKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return key, nil
}

// PrivateKeyFromBase58 decodes a base58 encoded ed25519 secret key.
func PrivateKeyFromBase58(raw string) (PrivateKey, error) {
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return key, nil
}
