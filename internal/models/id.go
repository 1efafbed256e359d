package models

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

const (
	base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Base62Length is the fixed width of the wire form of an [ID].
	Base62Length = 22
)

var ErrInvalidID = errors.New("invalid catalog id")

// ID is a 128-bit catalog identifier. The zero value is a valid id (all zeros).
type ID struct {
	hi, lo uint64
}

// ParseID decodes a base62 token of 1 to 22 characters. Tokens whose value overflows 128 bits are rejected.
func ParseID(token string) (ID, error) {
	if token == "" || len(token) > Base62Length {
		return ID{}, fmt.Errorf("%w: %q has length %d", ErrInvalidID, token, len(token))
	}

	var id ID
	for i := 0; i < len(token); i++ {
		digit := strings.IndexByte(base62Alphabet, token[i])
		if digit < 0 {
			return ID{}, fmt.Errorf("%w: %q contains %q", ErrInvalidID, token, token[i])
		}

		var ok bool
		if id, ok = id.mulAdd(62, uint64(digit)); !ok {
			return ID{}, fmt.Errorf("%w: %q overflows 128 bits", ErrInvalidID, token)
		}
	}
	return id, nil
}

// MustParseID is like [ParseID] but panics on error. Intended for tests and constants.
func MustParseID(token string) ID {
	id, err := ParseID(token)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseHexID decodes the 32 character hex form.
func ParseHexID(s string) (ID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return ID{}, fmt.Errorf("%w: bad hex %q", ErrInvalidID, s)
	}
	var id ID
	for i := 0; i < 8; i++ {
		id.hi = id.hi<<8 | uint64(raw[i])
		id.lo = id.lo<<8 | uint64(raw[i+8])
	}
	return id, nil
}

// mulAdd returns id*m + a and false on overflow.
func (id ID) mulAdd(m, a uint64) (ID, bool) {
	loHi, lo := bits.Mul64(id.lo, m)
	hiHi, hi := bits.Mul64(id.hi, m)
	if hiHi != 0 {
		return ID{}, false
	}
	hi, carry := bits.Add64(hi, loHi, 0)
	if carry != 0 {
		return ID{}, false
	}
	lo, carry = bits.Add64(lo, a, 0)
	hi, carry = bits.Add64(hi, 0, carry)
	if carry != 0 {
		return ID{}, false
	}
	return ID{hi: hi, lo: lo}, true
}

// divMod returns id/d and id%d.
func (id ID) divMod(d uint64) (ID, uint64) {
	qHi, r := bits.Div64(0, id.hi, d)
	qLo, r := bits.Div64(r, id.lo, d)
	return ID{hi: qHi, lo: qLo}, r
}

// Base62 returns the fixed-width 22 character form sent to the catalog.
func (id ID) Base62() string {
	var buf [Base62Length]byte
	v := id
	for i := Base62Length - 1; i >= 0; i-- {
		var r uint64
		v, r = v.divMod(62)
		buf[i] = base62Alphabet[r]
	}
	return string(buf[:])
}

// Token returns the compact base62 form without leading zero digits. It round-trips through [ParseID].
func (id ID) Token() string {
	token := strings.TrimLeft(id.Base62(), "0")
	if token == "" {
		return "0"
	}
	return token
}

// Hex returns the 32 character big-endian hex form.
func (id ID) Hex() string {
	return fmt.Sprintf("%016x%016x", id.hi, id.lo)
}

// String implements [fmt.Stringer] with the compact token.
func (id ID) String() string {
	return id.Token()
}

// IsZero reports whether id is the zero id.
func (id ID) IsZero() bool {
	return id.hi == 0 && id.lo == 0
}

// MarshalText encodes the wire form so IDs can be used in JSON.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.Base62()), nil
}

// UnmarshalText decodes a base62 token.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// FileIDLength is the size in bytes of a [FileID].
const FileIDLength = 20

// FileID references a single encoded audio file in the transport service.
type FileID [FileIDLength]byte

// ParseFileID decodes the 40 character hex form.
func ParseFileID(s string) (FileID, error) {
	var f FileID
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != FileIDLength {
		return f, fmt.Errorf("%w: bad file id %q", ErrInvalidID, s)
	}
	copy(f[:], raw)
	return f, nil
}

// Hex returns the 40 character hex form.
func (f FileID) Hex() string {
	return hex.EncodeToString(f[:])
}

func (f FileID) String() string {
	return f.Hex()
}

func (f FileID) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

func (f *FileID) UnmarshalText(text []byte) error {
	parsed, err := ParseFileID(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
