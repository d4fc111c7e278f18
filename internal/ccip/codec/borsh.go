package codec

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Helpers shared by the argument types. Variable length fields carry a u32
// little-endian prefix; bounds are checked before any bytes are consumed.

func writeBytes(enc *bin.Encoder, field string, b []byte, max int) error {
	if max > 0 && len(b) > max {
		return encodingErrorf("%s is %d bytes, maximum is %d", field, len(b), max)
	}
	if err := enc.WriteUint32(uint32(len(b)), binary.LittleEndian); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return enc.WriteBytes(b, false)
}

func readBytes(dec *bin.Decoder, field string, max int) ([]byte, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, encodingErrorf("read %s length: %v", field, err)
	}
	if max > 0 && int(n) > max {
		return nil, encodingErrorf("%s is %d bytes, maximum is %d", field, n, max)
	}
	if n == 0 {
		return nil, nil
	}
	raw, err := dec.ReadNBytes(int(n))
	if err != nil {
		return nil, encodingErrorf("read %s: %v", field, err)
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func writePublicKey(enc *bin.Encoder, key solana.PublicKey) error {
	return enc.WriteBytes(key[:], false)
}

func readPublicKey(dec *bin.Decoder, field string) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, encodingErrorf("read %s: %v", field, err)
	}
	return solana.PublicKeyFromBytes(raw), nil
}

func writeCount(enc *bin.Encoder, field string, n, max int) error {
	if max > 0 && n > max {
		return encodingErrorf("%s has %d entries, maximum is %d", field, n, max)
	}
	return enc.WriteUint32(uint32(n), binary.LittleEndian)
}

func readCount(dec *bin.Decoder, field string, max int) (int, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return 0, encodingErrorf("read %s count: %v", field, err)
	}
	if max > 0 && int(n) > max {
		return 0, encodingErrorf("%s has %d entries, maximum is %d", field, n, max)
	}
	return int(n), nil
}

func readUint64(dec *bin.Decoder, field string) (uint64, error) {
	v, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return 0, encodingErrorf("read %s: %v", field, err)
	}
	return v, nil
}
