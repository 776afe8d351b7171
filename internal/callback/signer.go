package callback

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Authenticator produces the Authorization header for outbound
// callbacks. It is pluggable; signature-scheme correctness is the
// counterparty registry's concern, not the protocol core's.
type Authenticator interface {
	Sign(payload []byte, now time.Time) (string, error)
}

// NoopSigner sends callbacks unsigned. Used when no signing key is
// configured (local development, conformance sandboxes).
type NoopSigner struct{}

func (NoopSigner) Sign([]byte, time.Time) (string, error) {
	return "", nil
}

// Ed25519Signer implements the gateway signature scheme: the request
// body is digested with BLAKE2b-512, the digest is wrapped in a signing
// string with created/expires validity bounds, and the signing string
// is signed with the subscriber's ed25519 key.
type Ed25519Signer struct {
	subscriberID string
	keyID        string
	key          ed25519.PrivateKey
	validity     time.Duration
}

// NewEd25519Signer builds a signer from a base64-encoded ed25519 seed.
func NewEd25519Signer(subscriberID, keyID, seedBase64 string) (*Ed25519Signer, error) {
	seed, err := base64.StdEncoding.DecodeString(seedBase64)
	if err != nil {
		return nil, fmt.Errorf("decode signing seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{
		subscriberID: subscriberID,
		keyID:        keyID,
		key:          ed25519.NewKeyFromSeed(seed),
		validity:     5 * time.Minute,
	}, nil
}

// PublicKey returns the base64 public key for registry publication and
// for verification in tests.
func (s *Ed25519Signer) PublicKey() string {
	pub := s.key.Public().(ed25519.PublicKey)
	return base64.StdEncoding.EncodeToString(pub)
}

func (s *Ed25519Signer) Sign(payload []byte, now time.Time) (string, error) {
	digest := blake2b.Sum512(payload)
	created := now.Unix()
	expires := now.Add(s.validity).Unix()

	signingString := fmt.Sprintf(
		"(created): %d\n(expires): %d\ndigest: BLAKE-512=%s",
		created, expires, base64.StdEncoding.EncodeToString(digest[:]),
	)
	signature := ed25519.Sign(s.key, []byte(signingString))

	header := fmt.Sprintf(
		`Signature keyId="%s|%s|ed25519",algorithm="ed25519",created="%d",expires="%d",headers="(created) (expires) digest",signature="%s"`,
		s.subscriberID, s.keyID, created, expires,
		base64.StdEncoding.EncodeToString(signature),
	)
	return header, nil
}
