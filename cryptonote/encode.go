package cryptonote

import (
	"io"

	"github.com/amjuarez/bytecoin-sub003/codec"
	"github.com/amjuarez/bytecoin-sub003/crypto"
)

// EncodeInput writes in's tagged-union encoding.
func EncodeInput(w io.Writer, in Input) error {
	tag, err := in.Tag()
	if err != nil {
		return err
	}
	ew := codec.NewErrWriter(w)
	if _, err := w.Write([]byte{tag}); err != nil {
		return err
	}
	switch tag {
	case InputTagGenerate:
		ew.Varint(in.Generate.Height)
	case InputTagToKey:
		ew.Varint(in.ToKey.Amount)
		ew.Varint(uint64(len(in.ToKey.KeyOffsets)))
		for _, off := range in.ToKey.KeyOffsets {
			ew.Varint(off)
		}
		ew.Hash(in.ToKey.KeyImage)
	case InputTagMultisignature:
		ew.Varint(in.Multisignature.Amount)
		ew.Varint(uint64(in.Multisignature.Signatures))
		ew.Varint(in.Multisignature.OutputIndex)
	}
	return ew.Err
}

// DecodeInput reads a tagged-union input.
func DecodeInput(r io.Reader) (Input, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		return Input{}, err
	}
	switch tagBuf[0] {
	case InputTagGenerate:
		h, err := codec.ReadVarint(r)
		if err != nil {
			return Input{}, err
		}
		return Input{Generate: &InputGenerate{Height: h}}, nil
	case InputTagToKey:
		amount, err := codec.ReadVarint(r)
		if err != nil {
			return Input{}, err
		}
		n, err := codec.ReadVarint(r)
		if err != nil {
			return Input{}, err
		}
		offsets := make([]uint64, n)
		for i := range offsets {
			if offsets[i], err = codec.ReadVarint(r); err != nil {
				return Input{}, err
			}
		}
		keyImage, err := codec.ReadHash(r)
		if err != nil {
			return Input{}, err
		}
		return Input{ToKey: &InputToKey{Amount: amount, KeyOffsets: offsets, KeyImage: keyImage}}, nil
	case InputTagMultisignature:
		amount, err := codec.ReadVarint(r)
		if err != nil {
			return Input{}, err
		}
		sigs, err := codec.ReadVarint(r)
		if err != nil {
			return Input{}, err
		}
		outIdx, err := codec.ReadVarint(r)
		if err != nil {
			return Input{}, err
		}
		return Input{Multisignature: &InputMultisignature{Amount: amount, Signatures: uint32(sigs), OutputIndex: outIdx}}, nil
	default:
		return Input{}, &ErrUnknownTag{Context: "input", Tag: tagBuf[0]}
	}
}

// EncodeOutputTarget writes t's tagged-union encoding.
func EncodeOutputTarget(w io.Writer, t OutputTarget) error {
	tag, err := t.Tag()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte{tag}); err != nil {
		return err
	}
	switch tag {
	case OutputTagToKey:
		return codec.WriteHash(w, t.ToKey.Key)
	case OutputTagMultisignature:
		ew := codec.NewErrWriter(w)
		ew.Varint(uint64(len(t.Multisignature.Keys)))
		for _, k := range t.Multisignature.Keys {
			ew.Hash(k)
		}
		ew.Varint(uint64(t.Multisignature.RequiredSignatures))
		return ew.Err
	}
	return nil
}

// DecodeOutputTarget reads a tagged-union output target.
func DecodeOutputTarget(r io.Reader) (OutputTarget, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		return OutputTarget{}, err
	}
	switch tagBuf[0] {
	case OutputTagToKey:
		key, err := codec.ReadHash(r)
		if err != nil {
			return OutputTarget{}, err
		}
		return OutputTarget{ToKey: &OutputToKey{Key: key}}, nil
	case OutputTagMultisignature:
		n, err := codec.ReadVarint(r)
		if err != nil {
			return OutputTarget{}, err
		}
		keys := make([]crypto.PublicKey, n)
		for i := range keys {
			if keys[i], err = codec.ReadHash(r); err != nil {
				return OutputTarget{}, err
			}
		}
		req, err := codec.ReadVarint(r)
		if err != nil {
			return OutputTarget{}, err
		}
		return OutputTarget{Multisignature: &OutputMultisignature{Keys: keys, RequiredSignatures: uint32(req)}}, nil
	default:
		return OutputTarget{}, &ErrUnknownTag{Context: "output", Tag: tagBuf[0]}
	}
}

// EncodePrefix writes the unsigned transaction body.
func EncodePrefix(w io.Writer, p *TransactionPrefix) error {
	if err := codec.WriteVarint(w, p.Version); err != nil {
		return err
	}
	if err := codec.WriteVarint(w, p.UnlockTime); err != nil {
		return err
	}
	if err := codec.WriteVarint(w, uint64(len(p.Inputs))); err != nil {
		return err
	}
	for _, in := range p.Inputs {
		if err := EncodeInput(w, in); err != nil {
			return err
		}
	}
	if err := codec.WriteVarint(w, uint64(len(p.Outputs))); err != nil {
		return err
	}
	for _, out := range p.Outputs {
		if err := codec.WriteVarint(w, out.Amount); err != nil {
			return err
		}
		if err := EncodeOutputTarget(w, out.Target); err != nil {
			return err
		}
	}
	return codec.WriteBytes(w, p.Extra)
}

// DecodePrefix reads the unsigned transaction body.
func DecodePrefix(r io.Reader) (*TransactionPrefix, error) {
	p := &TransactionPrefix{}
	var err error
	if p.Version, err = codec.ReadVarint(r); err != nil {
		return nil, err
	}
	if p.UnlockTime, err = codec.ReadVarint(r); err != nil {
		return nil, err
	}
	nIn, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	p.Inputs = make([]Input, nIn)
	for i := range p.Inputs {
		if p.Inputs[i], err = DecodeInput(r); err != nil {
			return nil, err
		}
	}
	nOut, err := codec.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	p.Outputs = make([]Output, nOut)
	for i := range p.Outputs {
		amount, err := codec.ReadVarint(r)
		if err != nil {
			return nil, err
		}
		target, err := DecodeOutputTarget(r)
		if err != nil {
			return nil, err
		}
		p.Outputs[i] = Output{Amount: amount, Target: target}
	}
	// Extra is bounded generously; a single transaction's extra field
	// carries at most a public key and an optional merge-mining tag.
	if p.Extra, err = codec.ReadBytes(r, 1<<20); err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		p.Extra = nil
	}
	return p, nil
}

// EncodeTransaction writes a full transaction: prefix followed by one
// signature set per input, skipped entirely when every input is a
// coinbase generate (matching Transaction::BEGIN_SERIALIZE_OBJECT's
// signatures_not_expected branch).
func EncodeTransaction(w io.Writer, tx *Transaction) error {
	if err := EncodePrefix(w, &tx.TransactionPrefix); err != nil {
		return err
	}
	if len(tx.Signatures) == 0 {
		return nil
	}
	if len(tx.Signatures) != len(tx.Inputs) {
		return errSignatureCountMismatch
	}
	for i, in := range tx.Inputs {
		want := in.SignatureCount()
		if len(tx.Signatures[i]) != want {
			return errSignatureCountMismatch
		}
		for _, sig := range tx.Signatures[i] {
			if _, err := w.Write(sig[:]); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeTransaction reads a full transaction. Whether a signature section
// follows the prefix is decided from the decoded inputs: a transaction
// with all-generate inputs (the miner tx) never serializes one, so the
// decoder inspects vin before deciding whether to expect signatures, the
// way the original archive does.
func DecodeTransaction(r io.Reader) (*Transaction, error) {
	prefix, err := DecodePrefix(r)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{TransactionPrefix: *prefix}
	allGenerate := true
	for _, in := range prefix.Inputs {
		if in.Generate == nil {
			allGenerate = false
			break
		}
	}
	if allGenerate {
		return tx, nil
	}
	tx.Signatures = make([][]crypto.Signature, len(prefix.Inputs))
	for i, in := range prefix.Inputs {
		n := in.SignatureCount()
		sigs := make([]crypto.Signature, n)
		for j := range sigs {
			if _, err := io.ReadFull(r, sigs[j][:]); err != nil {
				return nil, err
			}
		}
		tx.Signatures[i] = sigs
	}
	return tx, nil
}
