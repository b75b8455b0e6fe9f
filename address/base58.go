package address

import (
	"math/big"

	"github.com/pkg/errors"
)

// alphabet is the CryptoNote base58 alphabet: the bitcoin alphabet, with
// the same ambiguous characters (0, O, I, l) removed.
const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	fullBlockSize        = 8
	fullEncodedBlockSize = 11
)

// encodedBlockSizes[n] is the number of base58 characters an n-byte
// block encodes to. CryptoNote base58 works on fixed 8-byte blocks
// rather than treating the whole payload as one big integer, so the
// encoded length is a pure function of the byte length and decoding can
// reject any length the encoder cannot produce.
var encodedBlockSizes = [fullBlockSize + 1]int{0, 2, 3, 5, 6, 7, 9, 10, 11}

var decodedBlockSizes = buildDecodedBlockSizes()

func buildDecodedBlockSizes() map[int]int {
	m := make(map[int]int, len(encodedBlockSizes))
	for n, enc := range encodedBlockSizes {
		if n == 0 {
			continue
		}
		m[enc] = n
	}
	return m
}

var alphabetIndex = buildAlphabetIndex()

func buildAlphabetIndex() map[byte]int {
	m := make(map[byte]int, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = i
	}
	return m
}

// ErrInvalidBase58 is returned when a string contains a character
// outside the base58 alphabet, has a length no encoder output can have,
// or a block decodes above its byte-width maximum.
var ErrInvalidBase58 = errors.New("address: invalid base58")

func encodeBlock(data []byte, out []byte) {
	var num uint64
	for _, b := range data {
		num = num<<8 | uint64(b)
	}
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = alphabet[num%58]
		num /= 58
	}
}

func decodeBlock(data string, out []byte) error {
	num := new(big.Int)
	n58 := big.NewInt(58)
	for i := 0; i < len(data); i++ {
		digit, ok := alphabetIndex[data[i]]
		if !ok {
			return errors.Wrapf(ErrInvalidBase58, "character %q", data[i])
		}
		num.Mul(num, n58).Add(num, big.NewInt(int64(digit)))
	}
	if num.BitLen() > len(out)*8 {
		return errors.Wrap(ErrInvalidBase58, "block overflows its byte width")
	}
	num.FillBytes(out)
	return nil
}

// encodeBase58 encodes data block-wise into CryptoNote base58.
func encodeBase58(data []byte) string {
	fullBlocks := len(data) / fullBlockSize
	lastSize := len(data) % fullBlockSize
	outLen := fullBlocks * fullEncodedBlockSize
	if lastSize > 0 {
		outLen += encodedBlockSizes[lastSize]
	}
	out := make([]byte, outLen)
	for i := 0; i < fullBlocks; i++ {
		encodeBlock(data[i*fullBlockSize:(i+1)*fullBlockSize],
			out[i*fullEncodedBlockSize:(i+1)*fullEncodedBlockSize])
	}
	if lastSize > 0 {
		encodeBlock(data[fullBlocks*fullBlockSize:],
			out[fullBlocks*fullEncodedBlockSize:])
	}
	return string(out)
}

// decodeBase58 reverses encodeBase58, rejecting any string whose length
// or digit values the encoder could not have produced.
func decodeBase58(s string) ([]byte, error) {
	fullBlocks := len(s) / fullEncodedBlockSize
	lastSize := len(s) % fullEncodedBlockSize
	outLen := fullBlocks * fullBlockSize
	if lastSize > 0 {
		n, ok := decodedBlockSizes[lastSize]
		if !ok {
			return nil, errors.Wrap(ErrInvalidBase58, "impossible encoded length")
		}
		outLen += n
	}
	out := make([]byte, outLen)
	for i := 0; i < fullBlocks; i++ {
		if err := decodeBlock(s[i*fullEncodedBlockSize:(i+1)*fullEncodedBlockSize],
			out[i*fullBlockSize:(i+1)*fullBlockSize]); err != nil {
			return nil, err
		}
	}
	if lastSize > 0 {
		if err := decodeBlock(s[fullBlocks*fullEncodedBlockSize:],
			out[fullBlocks*fullBlockSize:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
