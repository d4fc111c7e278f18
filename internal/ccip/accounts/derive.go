package accounts

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	xerrors "CCIP-Bridge/internal/errors"
)

const (
	// MaxSeeds counts the bump seed.
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// DerivedAccount is a program derived address together with its inputs.
type DerivedAccount struct {
	Seeds   [][]byte
	Program solana.PublicKey
	Address solana.PublicKey
	Bump    uint8
}

type createFunc func(seeds [][]byte, program solana.PublicKey) (solana.PublicKey, error)

// DeriveAddress searches bumps from 255 down to 0 and returns the first
// candidate that is off the ed25519 curve.
func DeriveAddress(seeds [][]byte, program solana.PublicKey) (solana.PublicKey, uint8, error) {
	return deriveWith(solana.CreateProgramAddress, seeds, program)
}

func deriveWith(create createFunc, seeds [][]byte, program solana.PublicKey) (solana.PublicKey, uint8, error) {
	if len(seeds) > MaxSeeds-1 {
		return solana.PublicKey{}, 0, xerrors.Newf(xerrors.CodeInvalidArgument, "%d seeds exceed the limit of %d", len(seeds), MaxSeeds-1)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return solana.PublicKey{}, 0, xerrors.Newf(xerrors.CodeInvalidArgument, "seed %d is %d bytes, maximum is %d", i, len(seed), MaxSeedLength)
		}
	}

	bump := []byte{0}
	candidate := make([][]byte, 0, len(seeds)+1)
	candidate = append(candidate, seeds...)
	candidate = append(candidate, bump)

	for b := 255; b >= 0; b-- {
		bump[0] = byte(b)
		addr, err := create(candidate, program)
		if err == nil {
			return addr, byte(b), nil
		}
	}
	return solana.PublicKey{}, 0, xerrors.Newf(CodeNoValidBumpFound, "no off-curve address for %d seeds under program %s", len(seeds), program)
}

// SelectorSeed encodes a chain selector the way the programs do: u64 LE.
func SelectorSeed(selector uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, selector)
	return out
}
