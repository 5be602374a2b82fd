// Package attestation seals payment form fields before they are written to the
// audit table. Values are only opened by the offline audit tool.
package attestation

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/google/uuid"
)

// KeySize is the required key length (AES-256).
const KeySize = 32

var (
	ErrInvalidKey    = errors.New("encryption key must be exactly 32 bytes")
	ErrMalformedSeal = errors.New("malformed sealed value")
)

// Sealer encrypts single values with AES-256-GCM. It is safe for concurrent use.
type Sealer struct {
	aead  cipher.AEAD
	nonce io.Reader
}

func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Sealer{aead: aead, nonce: rand.Reader}, nil
}

// Seal returns "hex(nonce):hex(ciphertext)". A fresh nonce is drawn per call,
// so sealing the same plaintext twice yields different output.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.nonce, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	ct := s.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ct), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(sealed, ":")
	if !ok {
		return "", ErrMalformedSeal
	}
	nonce, err := hex.DecodeString(ivHex)
	if err != nil || len(nonce) != s.aead.NonceSize() {
		return "", ErrMalformedSeal
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", ErrMalformedSeal
	}
	pt, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(pt), nil
}

// SealFields seals each payment field independently.
func (s *Sealer) SealFields(userID uuid.UUID, p models.PaymentFields) (*models.PaymentAttestation, error) {
	var out [4]string
	for i, v := range []string{p.Name, p.Number, p.CVV, p.Expiry} {
		sealed, err := s.Seal(v)
		if err != nil {
			return nil, err
		}
		out[i] = sealed
	}
	return &models.PaymentAttestation{
		UserID:     userID,
		CardName:   out[0],
		CardNumber: out[1],
		CVV:        out[2],
		Expiry:     out[3],
	}, nil
}

// OpenFields is used by the audit tool.
func (s *Sealer) OpenFields(a *models.PaymentAttestation) (models.PaymentFields, error) {
	var out [4]string
	for i, v := range []string{a.CardName, a.CardNumber, a.CVV, a.Expiry} {
		pt, err := s.Open(v)
		if err != nil {
			return models.PaymentFields{}, err
		}
		out[i] = pt
	}
	return models.PaymentFields{Name: out[0], Number: out[1], CVV: out[2], Expiry: out[3]}, nil
}
