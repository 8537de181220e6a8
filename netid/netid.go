// Package netid implements the network identity hash. Every peer on a
// logical network carries the same identity; peers advertising a different
// identity are rejected during admission.
package netid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/json"
	"errors"
)

var ErrInvalidLength = errors.New("network id must be 32 bytes")
var ErrInvalidString = errors.New("invalid network id string")

// ID holds the raw hash along with a cached string representation.
// ID implements MarshalBinary and UnmarshalBinary to assist CBOR encoding.
type ID struct {
	b [32]byte
	s string
}

func (id *ID) String() string {
	return id.s
}

func (id *ID) MarshalBinary() ([]byte, error) {
	return id.b[:], nil
}

func (id *ID) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return ErrInvalidLength
	}
	copy(id.b[:], data)
	id.s = base32.StdEncoding.EncodeToString(data)
	return nil
}

func (id *ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*id = *parsed
	return nil
}

// FromSeed derives the network identity from an arbitrary byte string,
// typically the serialized genesis block.
func FromSeed(seed []byte) *ID {
	id := &ID{}
	id.b = sha256.Sum256(seed)
	id.s = base32.StdEncoding.EncodeToString(id.b[:])
	return id
}

func FromString(s string) (*ID, error) {
	raw, err := base32.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidString
	}
	id := &ID{}
	if err := id.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return id, nil
}

// Random generates a random identity. Intended for tests and network
// bootstrap tooling.
func Random() (*ID, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	id := &ID{}
	if err := id.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return id, nil
}

// Equal helper
func (id *ID) Equal(other *ID) bool {
	if id == nil && other == nil {
		return true
	}
	if id == nil || other == nil {
		return false
	}
	return id.b == other.b
}

// IsZero reports whether the identity is unset.
func (id *ID) IsZero() bool {
	return id.b == [32]byte{}
}
