// Package pass issues and verifies the QR admission pass of a visitor.
package pass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skip2/go-qrcode"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/models"
)

// Claims is the sealed content of a pass.
type Claims struct {
	VisitorID string             `json:"vid"`
	Type      models.VisitorType `json:"typ"`
	VisitDate time.Time          `json:"vdt"`
	GroupSize int                `json:"gsz,omitempty"`
}

type Generator struct {
	aead cipher.AEAD
	size int
}

// NewGenerator derives an AES-256-GCM key from secret.
func NewGenerator(secret string) (*Generator, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Generator{aead: aead, size: 256}, nil
}

// Token seals v into a URL-safe string.
func (g *Generator) Token(v *models.Visitor) (string, error) {
	data, err := json.Marshal(Claims{VisitorID: v.ID, Type: v.Type, VisitDate: v.VisitDate.UTC(), GroupSize: v.GroupSize})
	if err != nil {
		return "", err
	}
	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// PNG renders the pass token of v as a QR code.
func (g *Generator) PNG(v *models.Visitor) ([]byte, error) {
	token, err := g.Token(v)
	if err != nil {
		return nil, fmt.Errorf("seal pass: %w", err)
	}
	return qrcode.Encode(token, qrcode.Medium, g.size)
}

var errMalformed = errors.New("malformed pass")

// Open verifies and decodes a token. Tampered or foreign tokens are
// validation errors.
func (g *Generator) Open(token string) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < g.aead.NonceSize() {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, errMalformed)
	}
	nonce, sealed := raw[:g.aead.NonceSize()], raw[g.aead.NonceSize():]
	data, err := g.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperr.Validation("pass signature does not match")
	}
	var c Claims
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, errMalformed)
	}
	return &c, nil
}
