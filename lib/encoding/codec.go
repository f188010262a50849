// Package encoding serializes saved view state.
//
// State is packed with msgpack and then either signed (base64 payload plus a
// truncated HMAC-SHA256, readable by the client but tamper-proof) or sealed
// with AES-256-GCM (opaque to the client).
package encoding

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrSignatureInvalid = errors.New("encoding: state signature invalid")
	ErrDecryptFailed    = errors.New("encoding: state decryption failed")
	ErrInvalidFormat    = errors.New("encoding: invalid state format")
)

// Mode selects how a token protects its payload.
type Mode int

const (
	Signed Mode = iota
	Encrypted
)

func (m Mode) String() string {
	if m == Encrypted {
		return "encrypted"
	}
	return "signed"
}

// ParseMode accepts "signed" or "encrypted".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "signed":
		return Signed, nil
	case "encrypted":
		return Encrypted, nil
	}
	return Signed, fmt.Errorf("encoding: unknown mode %q", s)
}

// State is the per-component saved state of one view, keyed by client id.
type State map[string]map[string]any

// Codec turns State into a token and back.
type Codec struct {
	mode Mode
	key  []byte
	gcm  cipher.AEAD
}

// RandomKey returns a fresh 32-byte key. Tokens sealed with it do not
// survive a restart.
func RandomKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("encoding: generating key: %w", err)
	}
	return key, nil
}

// NewCodec creates a codec. Keys shorter than 32 bytes are stretched with
// SHA-256.
func NewCodec(key []byte, mode Mode) (*Codec, error) {
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{mode: mode, key: key, gcm: gcm}, nil
}

// Mode reports the codec's protection mode.
func (c *Codec) Mode() Mode { return c.mode }

// Marshal packs state without protecting it. Server-side stores use this.
func Marshal(s State) ([]byte, error) {
	return msgpack.Marshal(s)
}

// Unmarshal reverses Marshal. Integers come back as int64 or uint64 and
// floats as float64, whatever width they were packed with.
func Unmarshal(b []byte) (State, error) {
	var s State
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if s == nil {
		s = State{}
	}
	return s, nil
}

// Seal packs and protects state.
func (c *Codec) Seal(s State) (string, error) {
	packed, err := Marshal(s)
	if err != nil {
		return "", err
	}
	if c.mode == Encrypted {
		return c.encrypt(packed)
	}
	return c.sign(packed), nil
}

// Open verifies or decrypts a token produced by Seal.
func (c *Codec) Open(token string) (State, error) {
	var (
		packed []byte
		err    error
	)
	if c.mode == Encrypted {
		packed, err = c.decrypt(token)
	} else {
		packed, err = c.verify(token)
	}
	if err != nil {
		return nil, err
	}
	return Unmarshal(packed)
}

func (c *Codec) mac(data []byte) []byte {
	m := hmac.New(sha256.New, c.key)
	m.Write(data)
	return m.Sum(nil)[:16]
}

func (c *Codec) sign(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(c.mac(data))
}

func (c *Codec) verify(token string) ([]byte, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if !hmac.Equal(got, c.mac(data)) {
		return nil, ErrSignatureInvalid
	}
	return data, nil
}

func (c *Codec) encrypt(data []byte) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(c.gcm.Seal(nonce, nonce, data, nil)), nil
}

func (c *Codec) decrypt(token string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	n := c.gcm.NonceSize()
	if len(raw) < n {
		return nil, fmt.Errorf("%w: token too short", ErrDecryptFailed)
	}
	out, err := c.gcm.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return out, nil
}
