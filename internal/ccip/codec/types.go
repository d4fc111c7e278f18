package codec

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Field bounds enforced by the router before a message is accepted. They are
// checked locally so oversized input fails before anything is broadcast.
const (
	MaxDataLength    = 30_000
	MaxAddressLength = 64
	MaxTokenAmounts  = 255
	MaxPoolAddresses = 32
)

// Args is implemented by every method argument struct.
type Args interface {
	Method() Method
	MarshalWithEncoder(enc *bin.Encoder) error
	UnmarshalWithDecoder(dec *bin.Decoder) error
}

// TokenAmount is one token leg of a message.
type TokenAmount struct {
	Token  solana.PublicKey `json:"token"`
	Amount uint64           `json:"amount"`
}

// SVM2AnyMessage is the message a Solana sender hands to the router.
type SVM2AnyMessage struct {
	Receiver     []byte           `json:"receiver"`
	Data         []byte           `json:"data"`
	TokenAmounts []TokenAmount    `json:"token_amounts"`
	FeeToken     solana.PublicKey `json:"fee_token"`
	ExtraArgs    []byte           `json:"extra_args"`
}

func (m SVM2AnyMessage) MarshalWithEncoder(enc *bin.Encoder) error {
	if len(m.Receiver) == 0 {
		return encodingErrorf("message.receiver is empty")
	}
	if err := writeBytes(enc, "message.receiver", m.Receiver, MaxAddressLength); err != nil {
		return err
	}
	if err := writeBytes(enc, "message.data", m.Data, MaxDataLength); err != nil {
		return err
	}
	if err := writeCount(enc, "message.token_amounts", len(m.TokenAmounts), MaxTokenAmounts); err != nil {
		return err
	}
	for _, ta := range m.TokenAmounts {
		if err := writePublicKey(enc, ta.Token); err != nil {
			return err
		}
		if err := enc.WriteUint64(ta.Amount, binary.LittleEndian); err != nil {
			return err
		}
	}
	if err := writePublicKey(enc, m.FeeToken); err != nil {
		return err
	}
	return writeBytes(enc, "message.extra_args", m.ExtraArgs, 0)
}

func (m *SVM2AnyMessage) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if m.Receiver, err = readBytes(dec, "message.receiver", MaxAddressLength); err != nil {
		return err
	}
	if m.Data, err = readBytes(dec, "message.data", MaxDataLength); err != nil {
		return err
	}
	count, err := readCount(dec, "message.token_amounts", MaxTokenAmounts)
	if err != nil {
		return err
	}
	m.TokenAmounts = nil
	if count > 0 {
		m.TokenAmounts = make([]TokenAmount, count)
	}
	for i := range m.TokenAmounts {
		if m.TokenAmounts[i].Token, err = readPublicKey(dec, "token_amounts.token"); err != nil {
			return err
		}
		if m.TokenAmounts[i].Amount, err = readUint64(dec, "token_amounts.amount"); err != nil {
			return err
		}
	}
	if m.FeeToken, err = readPublicKey(dec, "message.fee_token"); err != nil {
		return err
	}
	m.ExtraArgs, err = readBytes(dec, "message.extra_args", 0)
	return err
}

// CCIPSendArgs are the ccip_send arguments. TokenIndexes holds, per token
// amount, the offset of that token's accounts in the remaining accounts.
type CCIPSendArgs struct {
	DestChainSelector uint64         `json:"dest_chain_selector"`
	Message           SVM2AnyMessage `json:"message"`
	TokenIndexes      []byte         `json:"token_indexes"`
}

func (a *CCIPSendArgs) Method() Method { return MethodCCIPSend }

func (a *CCIPSendArgs) MarshalWithEncoder(enc *bin.Encoder) error {
	if len(a.TokenIndexes) != len(a.Message.TokenAmounts) {
		return encodingErrorf("token_indexes has %d entries for %d token amounts", len(a.TokenIndexes), len(a.Message.TokenAmounts))
	}
	if err := enc.WriteUint64(a.DestChainSelector, binary.LittleEndian); err != nil {
		return err
	}
	if err := a.Message.MarshalWithEncoder(enc); err != nil {
		return err
	}
	return writeBytes(enc, "token_indexes", a.TokenIndexes, MaxTokenAmounts)
}

func (a *CCIPSendArgs) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if a.DestChainSelector, err = readUint64(dec, "dest_chain_selector"); err != nil {
		return err
	}
	if err = a.Message.UnmarshalWithDecoder(dec); err != nil {
		return err
	}
	a.TokenIndexes, err = readBytes(dec, "token_indexes", MaxTokenAmounts)
	return err
}

// GetFeeArgs are the get_fee arguments.
type GetFeeArgs struct {
	DestChainSelector uint64         `json:"dest_chain_selector"`
	Message           SVM2AnyMessage `json:"message"`
}

func (a *GetFeeArgs) Method() Method { return MethodGetFee }

func (a *GetFeeArgs) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint64(a.DestChainSelector, binary.LittleEndian); err != nil {
		return err
	}
	return a.Message.MarshalWithEncoder(enc)
}

func (a *GetFeeArgs) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if a.DestChainSelector, err = readUint64(dec, "dest_chain_selector"); err != nil {
		return err
	}
	return a.Message.UnmarshalWithDecoder(dec)
}

// RemoteAddress is an address on the remote chain in its native encoding.
type RemoteAddress struct {
	Address []byte `json:"address"`
}

func (r RemoteAddress) marshal(enc *bin.Encoder, field string) error {
	return writeBytes(enc, field, r.Address, MaxAddressLength)
}

func (r *RemoteAddress) unmarshal(dec *bin.Decoder, field string) (err error) {
	r.Address, err = readBytes(dec, field, MaxAddressLength)
	return err
}

// RemoteConfig describes the counterpart pool on a remote chain.
type RemoteConfig struct {
	PoolAddresses []RemoteAddress `json:"pool_addresses"`
	TokenAddress  RemoteAddress   `json:"token_address"`
	Decimals      uint8           `json:"decimals"`
}

// InitChainRemoteConfigArgs are the burn-mint pool arguments registering a
// remote chain for a mint.
type InitChainRemoteConfigArgs struct {
	RemoteChainSelector uint64           `json:"remote_chain_selector"`
	Mint                solana.PublicKey `json:"mint"`
	Config              RemoteConfig     `json:"cfg"`
}

func (a *InitChainRemoteConfigArgs) Method() Method { return MethodInitChainRemoteConfig }

func (a *InitChainRemoteConfigArgs) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint64(a.RemoteChainSelector, binary.LittleEndian); err != nil {
		return err
	}
	if err := writePublicKey(enc, a.Mint); err != nil {
		return err
	}
	if err := writeCount(enc, "cfg.pool_addresses", len(a.Config.PoolAddresses), MaxPoolAddresses); err != nil {
		return err
	}
	for _, addr := range a.Config.PoolAddresses {
		if err := addr.marshal(enc, "cfg.pool_addresses.address"); err != nil {
			return err
		}
	}
	if err := a.Config.TokenAddress.marshal(enc, "cfg.token_address"); err != nil {
		return err
	}
	return enc.WriteUint8(a.Config.Decimals)
}

func (a *InitChainRemoteConfigArgs) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if a.RemoteChainSelector, err = readUint64(dec, "remote_chain_selector"); err != nil {
		return err
	}
	if a.Mint, err = readPublicKey(dec, "mint"); err != nil {
		return err
	}
	count, err := readCount(dec, "cfg.pool_addresses", MaxPoolAddresses)
	if err != nil {
		return err
	}
	a.Config.PoolAddresses = nil
	if count > 0 {
		a.Config.PoolAddresses = make([]RemoteAddress, count)
	}
	for i := range a.Config.PoolAddresses {
		if err := a.Config.PoolAddresses[i].unmarshal(dec, "cfg.pool_addresses.address"); err != nil {
			return err
		}
	}
	if err := a.Config.TokenAddress.unmarshal(dec, "cfg.token_address"); err != nil {
		return err
	}
	if a.Config.Decimals, err = dec.ReadUint8(); err != nil {
		return encodingErrorf("read cfg.decimals: %v", err)
	}
	return nil
}
