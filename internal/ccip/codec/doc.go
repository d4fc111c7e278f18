// Package codec turns typed router and token pool arguments into the exact
// instruction data the on-chain programs expect: an 8-byte method
// discriminator followed by the borsh encoding of the argument struct.
//
// Discriminators are protocol configuration. They are supplied to New (or
// taken from DefaultDiscriminators) and never derived from method names at
// runtime.
package codec
