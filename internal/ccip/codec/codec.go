package codec

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	xerrors "CCIP-Bridge/internal/errors"
)

// Codec encodes and decodes instruction data for the registered methods.
type Codec struct {
	discriminators map[Method]Discriminator
	byTag          map[Discriminator]Method
}

// New returns a codec using DefaultDiscriminators overlaid with overrides.
// Overrides for methods outside the schema set fail with UNKNOWN_METHOD.
func New(overrides map[Method]Discriminator) (*Codec, error) {
	discs := DefaultDiscriminators()
	for method, d := range overrides {
		if !Known(method) {
			return nil, unknownMethod(method)
		}
		discs[method] = d
	}
	byTag := make(map[Discriminator]Method, len(discs))
	for method, d := range discs {
		if other, dup := byTag[d]; dup {
			return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "methods %s and %s share discriminator %s", other, method, d)
		}
		byTag[d] = method
	}
	return &Codec{discriminators: discs, byTag: byTag}, nil
}

// Discriminator returns the configured tag for method.
func (c *Codec) Discriminator(method Method) (Discriminator, error) {
	d, ok := c.discriminators[method]
	if !ok {
		return Discriminator{}, unknownMethod(method)
	}
	return d, nil
}

// Encode returns discriminator || borsh(args).
func (c *Codec) Encode(method Method, args Args) ([]byte, error) {
	d, err := c.Discriminator(method)
	if err != nil {
		return nil, err
	}
	if args == nil {
		return nil, encodingErrorf("%s: arguments are nil", method)
	}
	if args.Method() != method {
		return nil, encodingErrorf("%s: got arguments for %s", method, args.Method())
	}
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if err := args.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, asEncodingError(method, err)
	}
	return buf.Bytes(), nil
}

// Decode parses data produced by Encode back into a fresh argument struct.
func (c *Codec) Decode(method Method, data []byte) (Args, error) {
	d, err := c.Discriminator(method)
	if err != nil {
		return nil, err
	}
	if len(data) < DiscriminatorSize {
		return nil, encodingErrorf("%s: data is %d bytes, shorter than the discriminator", method, len(data))
	}
	if !bytes.Equal(data[:DiscriminatorSize], d[:]) {
		return nil, encodingErrorf("%s: discriminator %x does not match %s", method, data[:DiscriminatorSize], d)
	}
	args := schemas[method].newArgs()
	dec := bin.NewBorshDecoder(data[DiscriminatorSize:])
	if err := args.UnmarshalWithDecoder(dec); err != nil {
		return nil, asEncodingError(method, err)
	}
	if dec.HasRemaining() {
		return nil, encodingErrorf("%s: %d trailing bytes after arguments", method, dec.Remaining())
	}
	return args, nil
}

// MethodOf identifies the method of raw instruction data by its tag.
func (c *Codec) MethodOf(data []byte) (Method, error) {
	if len(data) < DiscriminatorSize {
		return "", encodingErrorf("data is %d bytes, shorter than the discriminator", len(data))
	}
	var d Discriminator
	copy(d[:], data)
	method, ok := c.byTag[d]
	if !ok {
		return "", xerrors.Newf(CodeUnknownMethod, "no method registered for discriminator %s", d)
	}
	return method, nil
}

func asEncodingError(method Method, err error) error {
	if _, ok := xerrors.From(err); ok {
		return err
	}
	return xerrors.Wrap(CodeEncoding, err, fmt.Sprintf("%s: borsh encoding failed", method))
}
