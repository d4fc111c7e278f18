package svm

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const (
	// EnvPrivateKey holds a base58 or hex encoded secret key.
	EnvPrivateKey = "SOLANA_PRIVATE_KEY"
	// EnvKeypairPath points at a JSON keypair file as written by solana-keygen.
	EnvKeypairPath = "SOLANA_KEYPAIR_PATH"
)

// DefaultKeypairPath is the solana CLI's default keypair location.
func DefaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

// ParsePrivateKey decodes a secret key given as base58, hex (with or without
// 0x) or a JSON byte array. Both 64-byte keypairs and 32-byte seeds are
// accepted.
func ParsePrivateKey(raw string) (solana.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	var decoded []byte
	switch {
	case strings.HasPrefix(raw, "["):
		var values []int
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, fmt.Errorf("decode keypair json: %w", err)
		}
		decoded = make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("keypair json byte %d out of range", i)
			}
			decoded[i] = byte(v)
		}
	case isHexKey(raw):
		b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, fmt.Errorf("decode hex private key: %w", err)
		}
		decoded = b
	default:
		b, err := base58.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode base58 private key: %w", err)
		}
		decoded = b
	}
	return keyFromBytes(decoded)
}

func isHexKey(raw string) bool {
	s := strings.TrimPrefix(raw, "0x")
	if len(s) != 2*ed25519.SeedSize && len(s) != 2*ed25519.PrivateKeySize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func keyFromBytes(b []byte) (solana.PrivateKey, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return solana.PrivateKey(ed25519.NewKeyFromSeed(b)), nil
	case ed25519.PrivateKeySize:
		key := solana.PrivateKey(b)
		derived := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
		if !key.PublicKey().Equals(solana.PrivateKey(derived).PublicKey()) {
			return nil, fmt.Errorf("keypair public half does not match its secret")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(b))
	}
}

// LoadKeypairFile reads a solana-keygen JSON keypair.
func LoadKeypairFile(path string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair %s: %w", path, err)
	}
	key, err := ParsePrivateKey(string(data))
	if err != nil {
		return nil, fmt.Errorf("keypair %s: %w", path, err)
	}
	return key, nil
}

// LoadSigner resolves the signing key in order: explicit key, explicit path,
// SOLANA_PRIVATE_KEY, SOLANA_KEYPAIR_PATH, then the solana CLI default file.
func LoadSigner(privateKey, keypairPath string) (solana.PrivateKey, error) {
	if strings.TrimSpace(privateKey) != "" {
		return ParsePrivateKey(privateKey)
	}
	if keypairPath != "" {
		return LoadKeypairFile(keypairPath)
	}
	if env := os.Getenv(EnvPrivateKey); strings.TrimSpace(env) != "" {
		return ParsePrivateKey(env)
	}
	if env := os.Getenv(EnvKeypairPath); env != "" {
		return LoadKeypairFile(env)
	}
	if path := DefaultKeypairPath(); path != "" {
		return LoadKeypairFile(path)
	}
	return nil, fmt.Errorf("no solana signer configured")
}
