// Package crypto holds wallet key storage and the Polymarket API
// authentication schemes: the EIP-712 L1 signature and HMAC L2 headers.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	keyFileVersion   = 1
)

// ErrNoKey is returned when neither a raw key nor a key file is configured.
var ErrNoKey = errors.New("crypto: no wallet key configured")

type keyFile struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource says where the wallet private key comes from. A raw key wins
// over an encrypted file.
type KeySource struct {
	RawPrivateKey    string
	EncryptedKeyPath string
	KeyPassword      string
}

// Configured reports whether any key source is set.
func (s KeySource) Configured() bool {
	return s.RawPrivateKey != "" || s.EncryptedKeyPath != ""
}

// EncryptKey seals a hex private key with a password-derived
// AES-256-GCM key (PBKDF2-HMAC-SHA256) and returns the JSON key file.
func EncryptKey(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("crypto: expected 32-byte key, got %d bytes", len(keyBytes))
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	return json.MarshalIndent(keyFile{
		Version:    keyFileVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, keyBytes, nil)),
	}, "", "  ")
}

// WriteEncryptedKey encrypts privateKeyHex and writes it to path with
// owner-only permissions.
func WriteEncryptedKey(path, privateKeyHex, password string) error {
	data, err := EncryptKey(privateKeyHex, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("crypto: write key file: %w", err)
	}
	return nil
}

// DecryptKey opens a key file produced by EncryptKey and returns the hex
// private key without a 0x prefix.
func DecryptKey(data []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return "", fmt.Errorf("crypto: parsing key file: %w", err)
	}
	if kf.Version != keyFileVersion {
		return "", fmt.Errorf("crypto: unsupported key file version %d", kf.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(kf.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(kf.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(kf.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}
	return hex.EncodeToString(plaintext), nil
}

// LoadKey resolves the wallet private key from src.
func LoadKey(src KeySource) (string, error) {
	if src.RawPrivateKey != "" {
		k := strings.TrimPrefix(src.RawPrivateKey, "0x")
		if _, err := hex.DecodeString(k); err != nil {
			return "", fmt.Errorf("crypto: raw private key is not valid hex: %w", err)
		}
		return k, nil
	}
	if src.EncryptedKeyPath != "" {
		data, err := os.ReadFile(src.EncryptedKeyPath)
		if err != nil {
			return "", fmt.Errorf("crypto: reading key file: %w", err)
		}
		return DecryptKey(data, src.KeyPassword)
	}
	return "", ErrNoKey
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}
	return gcm, nil
}
