package crypto

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

// SaveKeypairFile writes the key as a JSON byte array, the format used by the
// solana-keygen tooling. If the parent directory does not exist it will be
// created with 0700 permissions.
func SaveKeypairFile(path string, key PrivateKey) error {
	if len(key) == 0 {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty keypair path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	raw := make([]int, len(key))
	for i, b := range key {
		raw[i] = int(b)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "keypair-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// LoadKeypairFile reads a key written by SaveKeypairFile or solana-keygen.
func LoadKeypairFile(path string) (PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keypair path")
	}
	return solana.PrivateKeyFromSolanaKeygenFile(path)
}
