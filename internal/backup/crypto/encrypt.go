// Package crypto seals backup archives with AES-256-GCM.
// The password is never stored; the archive only carries the salt and nonce.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidPassword is returned when the provided password is incorrect.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidArchive is returned when the archive format is invalid.
	ErrInvalidArchive = errors.New("invalid archive format")
)

const (
	// PasswordMinLength is the minimum required password length.
	PasswordMinLength = 8
	// SaltLength is the length of the random salt for key derivation.
	SaltLength = 32
	// Iterations is the PBKDF2-SHA256 work factor.
	Iterations = 100_000

	algorithm   = "AES-256-GCM"
	headerMagic = "PLCARC"
)

// ArchiveHeader precedes the ciphertext of a sealed archive.
type ArchiveHeader struct {
	Version   uint8
	Algorithm string
	Nonce     []byte
	Salt      []byte
}

// IsEncrypted reports whether data starts with a sealed archive header.
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(headerMagic))
}

// ValidatePassword checks if a password meets minimum requirements.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters", PasswordMinLength)
	}
	return nil
}

// EncryptArchive seals data with a key derived from password.
func EncryptArchive(data []byte, password string) ([]byte, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	headerData, err := serializeHeader(ArchiveHeader{
		Version:   1,
		Algorithm: algorithm,
		Nonce:     nonce,
		Salt:      salt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize header: %w", err)
	}

	// The header is authenticated as additional data.
	return gcm.Seal(headerData, nonce, data, headerData), nil
}

// DecryptArchive opens data sealed by EncryptArchive. A wrong password and a
// tampered payload both fail authentication and yield ErrInvalidPassword.
func DecryptArchive(encryptedData []byte, password string) ([]byte, error) {
	header, headerSize, err := parseHeader(encryptedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if header.Version != 1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidArchive, header.Version)
	}
	if header.Algorithm != algorithm {
		return nil, fmt.Errorf("%w: unsupported algorithm %s", ErrInvalidArchive, header.Algorithm)
	}

	gcm, err := newGCM(password, header.Salt)
	if err != nil {
		return nil, err
	}
	if len(header.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: nonce size %d", ErrInvalidArchive, len(header.Nonce))
	}

	plaintext, err := gcm.Open(nil, header.Nonce, encryptedData[headerSize:], encryptedData[:headerSize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// deriveKey derives a 32-byte key from password and salt using PBKDF2-SHA256.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, 32, sha256.New)
}

// serializeHeader writes magic, version, then length-prefixed algorithm,
// nonce and salt.
func serializeHeader(h ArchiveHeader) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(headerMagic)
	buf.WriteByte(h.Version)

	for _, field := range [][]byte{[]byte(h.Algorithm), h.Nonce, h.Salt} {
		if len(field) > 255 {
			return nil, errors.New("header field too long")
		}
		buf.WriteByte(byte(len(field)))
		buf.Write(field)
	}
	return buf.Bytes(), nil
}

// parseHeader reads the header and returns its size in bytes.
func parseHeader(data []byte) (ArchiveHeader, int, error) {
	var header ArchiveHeader
	r := bytes.NewReader(data)

	magic := make([]byte, len(headerMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return header, 0, fmt.Errorf("failed to read magic: %w", err)
	}
	if string(magic) != headerMagic {
		return header, 0, fmt.Errorf("invalid magic number: %q", magic)
	}

	version, err := r.ReadByte()
	if err != nil {
		return header, 0, fmt.Errorf("failed to read version: %w", err)
	}
	header.Version = version

	readField := func(name string) ([]byte, error) {
		n, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s length: %w", name, err)
		}
		field := make([]byte, n)
		if _, err := io.ReadFull(r, field); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return field, nil
	}

	alg, err := readField("algorithm")
	if err != nil {
		return header, 0, err
	}
	header.Algorithm = string(alg)
	if header.Nonce, err = readField("nonce"); err != nil {
		return header, 0, err
	}
	if header.Salt, err = readField("salt"); err != nil {
		return header, 0, err
	}

	return header, len(data) - r.Len(), nil
}
