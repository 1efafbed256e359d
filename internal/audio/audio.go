// Package audio holds the decryption primitive and container constants for fetched audio files.
//
// Files are encrypted with AES-128 in counter mode under a per-file key and a fixed initial counter
// block. Decrypted payloads start with a [HeaderSize] byte vendor header that precedes the Ogg stream.
package audio

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
)

// HeaderSize is the length of the vendor header preceding the Ogg payload of a decrypted file.
const HeaderSize = 0xa7

// KeySize is the length of an audio key in bytes.
const KeySize = 16

var audioIV = [aes.BlockSize]byte{
	0x72, 0xe0, 0x67, 0xfb, 0xdd, 0xcb, 0xcf, 0x77,
	0xeb, 0xe8, 0xbc, 0x64, 0x3f, 0x63, 0x0d, 0x93,
}

// Key is the per-file symmetric key returned by the key service.
type Key [KeySize]byte

// ParseKey decodes a 32 character hex key.
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("invalid audio key: %w", err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("invalid audio key: expected %d bytes, got %d", KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Hex returns the key as lowercase hex.
func (k Key) Hex() string { return hex.EncodeToString(k[:]) }

// Decrypt returns the plaintext of an encrypted file. The transform is symmetric, so Decrypt also
// encrypts.
func Decrypt(key Key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCTR(block, audioIV[:]).XORKeyStream(out, data)
	return out, nil
}

// StripHeader drops the vendor header. Payloads no longer than the header yield an empty slice.
func StripHeader(plain []byte) []byte {
	if len(plain) <= HeaderSize {
		return []byte{}
	}
	return plain[HeaderSize:]
}
