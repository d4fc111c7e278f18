package codec

import (
	"github.com/gagliardetto/solana-go"
)

// MaxInstructionDataSize bounds discriminator plus payload. A Solana
// transaction must fit in a single 1232 byte packet.
const MaxInstructionDataSize = 1232

// AccountRef is one entry of an instruction's ordered account list.
type AccountRef struct {
	Name       string           `json:"name,omitempty"`
	Address    solana.PublicKey `json:"address"`
	IsSigner   bool             `json:"is_signer"`
	IsWritable bool             `json:"is_writable"`
}

// EncodedInstruction is a ready-to-sign program instruction. It implements
// solana.Instruction.
type EncodedInstruction struct {
	Method        Method           `json:"method"`
	Program       solana.PublicKey `json:"program_id"`
	Discriminator Discriminator    `json:"discriminator"`
	Payload       []byte           `json:"payload"`
	AccountList   []AccountRef     `json:"accounts"`
}

// Instruction encodes args and pairs them with the resolved account list.
func (c *Codec) Instruction(method Method, program solana.PublicKey, args Args, accounts []AccountRef) (*EncodedInstruction, error) {
	data, err := c.Encode(method, args)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxInstructionDataSize {
		return nil, encodingErrorf("%s: instruction data is %d bytes, transaction limit is %d", method, len(data), MaxInstructionDataSize)
	}
	ix := &EncodedInstruction{
		Method:      method,
		Program:     program,
		Payload:     data[DiscriminatorSize:],
		AccountList: append([]AccountRef(nil), accounts...),
	}
	copy(ix.Discriminator[:], data[:DiscriminatorSize])
	return ix, nil
}

func (i *EncodedInstruction) ProgramID() solana.PublicKey {
	return i.Program
}

func (i *EncodedInstruction) Accounts() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, 0, len(i.AccountList))
	for _, ref := range i.AccountList {
		metas = append(metas, solana.NewAccountMeta(ref.Address, ref.IsWritable, ref.IsSigner))
	}
	return metas
}

func (i *EncodedInstruction) Data() ([]byte, error) {
	out := make([]byte, 0, DiscriminatorSize+len(i.Payload))
	out = append(out, i.Discriminator[:]...)
	return append(out, i.Payload...), nil
}

// Signers returns the addresses flagged as signers, in list order.
func (i *EncodedInstruction) Signers() []solana.PublicKey {
	var out []solana.PublicKey
	for _, ref := range i.AccountList {
		if ref.IsSigner {
			out = append(out, ref.Address)
		}
	}
	return out
}
