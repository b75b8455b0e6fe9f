package crypto

// Primitives is the external boundary for the cryptographic operations
// the core ledger engine never implements itself: memory-hard
// proof-of-work hashing and ring-signature generation/verification.
// A full node wires a real CNv4/CNv8 slow-hash and Ed25519-derived
// ring-signature implementation here; the core only calls through this
// interface, mirroring how daglabs-btcd's BlockDAG takes a *txscript.
// SigCache rather than implementing secp256k1 verification itself.
type Primitives interface {
	// SlowHash computes the proof-of-work hash of a block's hashing blob.
	SlowHash(blob []byte) Hash256

	// CheckRingSignature verifies that sigs authorize spending the output
	// identified by keyImage from one of the public keys in pubKeys, with
	// prefixHash as the signed message.
	CheckRingSignature(prefixHash Hash256, keyImage KeyImage, pubKeys []PublicKey, sigs []Signature) bool
}

// StdPrimitives is a deterministic stand-in used by tests and by any
// caller that only exercises the segment/cache/reorg logic and does not
// need real proof-of-work or signature security. It is not
// cryptographically meaningful: SlowHash degrades to a second FastHash
// pass and CheckRingSignature reports success whenever there is one
// signature per public key, without checking any of them. A production node
// must replace this with a real implementation before touching mainnet
// data.
type StdPrimitives struct{}

// SlowHash implements Primitives with a double FastHash pass.
func (StdPrimitives) SlowHash(blob []byte) Hash256 {
	h := FastHash(blob)
	return FastHash(h[:])
}

// CheckRingSignature implements Primitives by trivially accepting any
// well-formed signature set; callers needing real security must supply
// their own Primitives implementation.
func (StdPrimitives) CheckRingSignature(_ Hash256, _ KeyImage, pubKeys []PublicKey, sigs []Signature) bool {
	return len(pubKeys) == len(sigs)
}
