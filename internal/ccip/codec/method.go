package codec

import (
	"encoding/hex"
	"strings"

	xerrors "CCIP-Bridge/internal/errors"
)

// Method names a program entrypoint in the closed schema set.
type Method string

const (
	// MethodCCIPSend is the router entrypoint that locks or burns tokens and
	// emits a cross-chain message.
	MethodCCIPSend Method = "ccip_send"
	// MethodGetFee quotes the fee for a message without sending it.
	MethodGetFee Method = "get_fee"
	// MethodInitChainRemoteConfig registers a remote chain on a burn-mint pool.
	MethodInitChainRemoteConfig Method = "init_chain_remote_config"
)

// DiscriminatorSize is the length of the method tag that prefixes every
// instruction.
const DiscriminatorSize = 8

// Discriminator is the fixed tag identifying a program method.
type Discriminator [DiscriminatorSize]byte

// String renders the discriminator as lowercase hex.
func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText implements encoding.TextMarshaler.
func (d Discriminator) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Discriminator) UnmarshalText(text []byte) error {
	parsed, err := ParseDiscriminator(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDiscriminator decodes a 16 character hex string, with or without a
// 0x prefix.
func ParseDiscriminator(raw string) (Discriminator, error) {
	var d Discriminator
	trimmed := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(raw)), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return d, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "discriminator is not valid hex")
	}
	if len(decoded) != DiscriminatorSize {
		return d, xerrors.Newf(xerrors.CodeInvalidArgument, "discriminator must be %d bytes, got %d", DiscriminatorSize, len(decoded))
	}
	copy(d[:], decoded)
	return d, nil
}

// DefaultDiscriminators returns the tags published in the router and
// burn-mint pool IDLs.
func DefaultDiscriminators() map[Method]Discriminator {
	return map[Method]Discriminator{
		MethodCCIPSend:              {108, 216, 134, 191, 249, 234, 33, 84},
		MethodGetFee:                {115, 195, 235, 161, 25, 219, 60, 29},
		MethodInitChainRemoteConfig: {21, 150, 133, 36, 2, 116, 199, 129},
	}
}

type schema struct {
	newArgs func() Args
}

var schemas = map[Method]schema{
	MethodCCIPSend:              {newArgs: func() Args { return new(CCIPSendArgs) }},
	MethodGetFee:                {newArgs: func() Args { return new(GetFeeArgs) }},
	MethodInitChainRemoteConfig: {newArgs: func() Args { return new(InitChainRemoteConfigArgs) }},
}

// Methods lists the registered methods in a stable order.
func Methods() []Method {
	return []Method{MethodCCIPSend, MethodGetFee, MethodInitChainRemoteConfig}
}

// Known reports whether m belongs to the schema set.
func Known(m Method) bool {
	_, ok := schemas[m]
	return ok
}

func unknownMethod(m Method) error {
	return xerrors.Newf(CodeUnknownMethod, "method %q is not registered", string(m))
}
