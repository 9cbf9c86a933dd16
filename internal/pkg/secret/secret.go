package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	prefix    = "sb1:"
	nonceSize = 24
)

var ErrDecrypt = errors.New("failed to decrypt value")

// Box 对称加密落库的敏感字段（用户 API Key）
type Box struct {
	key [32]byte
}

// New 由口令派生 32 字节密钥
func New(passphrase string) *Box {
	return &Box{key: sha256.Sum256([]byte(passphrase))}
}

// Seal 加密，输出 base64 文本
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open 解密 Seal 的输出
func (b *Box) Open(encoded string) (string, error) {
	if !strings.HasPrefix(encoded, prefix) {
		return "", ErrDecrypt
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, prefix))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	out, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(out), nil
}
