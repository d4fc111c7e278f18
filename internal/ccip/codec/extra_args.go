package codec

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
)

// GenericExtraArgsV2Tag prefixes extra args for EVM destinations.
var GenericExtraArgsV2Tag = [4]byte{0x18, 0x1d, 0xcf, 0x10}

// EVMExtraArgsV2 carries destination execution parameters for EVM chains.
// The on-chain gas_limit is a u128; values above the u64 range are rejected.
type EVMExtraArgsV2 struct {
	GasLimit                 uint64 `json:"gas_limit"`
	AllowOutOfOrderExecution bool   `json:"allow_out_of_order_execution"`
}

// Bytes returns tag || borsh(gas_limit u128, allow_out_of_order_execution bool).
func (e EVMExtraArgsV2) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(GenericExtraArgsV2Tag[:])
	enc := bin.NewBorshEncoder(buf)
	// u128 little-endian: low word first.
	if err := enc.WriteUint64(e.GasLimit, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(0, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(e.AllowOutOfOrderExecution); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseEVMExtraArgsV2 is the inverse of Bytes.
func ParseEVMExtraArgsV2(raw []byte) (EVMExtraArgsV2, error) {
	var out EVMExtraArgsV2
	if len(raw) < len(GenericExtraArgsV2Tag) || !bytes.Equal(raw[:4], GenericExtraArgsV2Tag[:]) {
		return out, encodingErrorf("extra args do not start with the GenericExtraArgsV2 tag")
	}
	dec := bin.NewBorshDecoder(raw[4:])
	lo, err := readUint64(dec, "extra_args.gas_limit")
	if err != nil {
		return out, err
	}
	hi, err := readUint64(dec, "extra_args.gas_limit")
	if err != nil {
		return out, err
	}
	if hi != 0 {
		return out, encodingErrorf("extra_args.gas_limit exceeds 64 bits")
	}
	allow, err := dec.ReadBool()
	if err != nil {
		return out, encodingErrorf("read extra_args.allow_out_of_order_execution: %v", err)
	}
	if dec.HasRemaining() {
		return out, encodingErrorf("extra args carry %d trailing bytes", dec.Remaining())
	}
	out.GasLimit = lo
	out.AllowOutOfOrderExecution = allow
	return out, nil
}
