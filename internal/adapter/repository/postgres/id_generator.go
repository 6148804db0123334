package postgres

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates ULID-based IDs.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

// UUIDGenerator issues invoice order ids. The processor echoes them back in webhooks.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a random v4 UUID.
func (g *UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// qrCodeBytes is the entropy carried by each ticket code.
const qrCodeBytes = 24

// QRCodeGenerator issues unguessable ticket codes.
type QRCodeGenerator struct{}

// NewQRCodeGenerator creates a new QRCodeGenerator.
func NewQRCodeGenerator() *QRCodeGenerator {
	return &QRCodeGenerator{}
}

// Generate returns a URL-safe code backed by 192 random bits.
func (g *QRCodeGenerator) Generate() (string, error) {
	buf := make([]byte, qrCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
