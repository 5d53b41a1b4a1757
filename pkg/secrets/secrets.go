// Package secrets decrypts protected configuration values before any
// other component reads the process environment.
//
// Protected values appear as environment variable values in the literal
// form
//
//	ENC[AES256_GCM,data:<b64>,iv:<b64>,tag:<b64>,type:str]
//
// and are decrypted with AES-256-GCM using a 32-byte key supplied as a
// 64-hex-character environment variable. The one-time startup pass in
// Bootstrap replaces each literal in-process with its plaintext; nothing
// is ever written back to disk.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyEnvVar is the environment variable that supplies the encryption key
// as 64 hex characters (32 bytes).
const KeyEnvVar = "PFORTE_ENCRYPTION_KEY"

const (
	literalPrefix = "ENC[AES256_GCM,"
	literalSuffix = ",type:str]"

	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	nonceSize = 12
)

// Literal is a parsed encrypted-value literal.
type Literal struct {
	Data []byte // ciphertext without the GCM tag
	IV   []byte // GCM nonce
	Tag  []byte // GCM authentication tag
}

// IsLiteral reports whether s has the encrypted-value literal shape.
// It checks only the envelope, not the payload encoding.
func IsLiteral(s string) bool {
	return strings.HasPrefix(s, literalPrefix) && strings.HasSuffix(s, literalSuffix)
}

// ParseLiteral parses an encrypted-value literal into its parts.
func ParseLiteral(s string) (*Literal, error) {
	if !IsLiteral(s) {
		return nil, fmt.Errorf("not an ENC[AES256_GCM,...] literal")
	}

	body := strings.TrimSuffix(strings.TrimPrefix(s, literalPrefix), literalSuffix)

	lit := &Literal{}
	for _, part := range strings.Split(body, ",") {
		label, b64, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("malformed segment %q", part)
		}
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decoding %s segment: %w", label, err)
		}
		switch label {
		case "data":
			lit.Data = raw
		case "iv":
			lit.IV = raw
		case "tag":
			lit.Tag = raw
		default:
			return nil, fmt.Errorf("unknown segment label %q", label)
		}
	}

	if lit.Data == nil || lit.IV == nil || lit.Tag == nil {
		return nil, fmt.Errorf("literal missing data, iv, or tag segment")
	}

	return lit, nil
}

// String reassembles the literal form.
func (l *Literal) String() string {
	return literalPrefix +
		"data:" + base64.StdEncoding.EncodeToString(l.Data) +
		",iv:" + base64.StdEncoding.EncodeToString(l.IV) +
		",tag:" + base64.StdEncoding.EncodeToString(l.Tag) +
		literalSuffix
}

// Decrypt recovers the plaintext of a parsed literal.
func Decrypt(lit *Literal, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(lit.IV) != gcm.NonceSize() {
		return "", fmt.Errorf("iv is %d bytes, want %d", len(lit.IV), gcm.NonceSize())
	}

	// Go's GCM expects ciphertext||tag.
	sealed := make([]byte, 0, len(lit.Data)+len(lit.Tag))
	sealed = append(sealed, lit.Data...)
	sealed = append(sealed, lit.Tag...)

	plain, err := gcm.Open(nil, lit.IV, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("opening ciphertext: %w", err)
	}
	return string(plain), nil
}

// DecryptString parses and decrypts an encrypted-value literal.
func DecryptString(s string, key []byte) (string, error) {
	lit, err := ParseLiteral(s)
	if err != nil {
		return "", err
	}
	return Decrypt(lit, key)
}

// Encrypt seals a plaintext into the encrypted-value literal form with a
// fresh random nonce. Decrypting the result with the same key reproduces
// the plaintext exactly.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()

	lit := &Literal{
		Data: sealed[:tagStart],
		IV:   iv,
		Tag:  sealed[tagStart:],
	}
	return lit.String(), nil
}

// ParseKey decodes a 64-hex-character key string to its 32 raw bytes.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", len(key), KeySize)
	}
	return key, nil
}

// GenerateKey returns a fresh random key encoded as 64 hex characters.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
