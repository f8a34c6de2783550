package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-docverify/internal/config"
	"github.com/go-docverify/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the attestation payload for a verified identity.
type Claims struct {
	DocumentType domain.DocumentType `json:"document_type"`
	Number       string              `json:"number"`
	Name         string              `json:"name"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 attestations.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	expiry     time.Duration
	now        func() time.Time
}

// NewProvider loads the key pair named in cfg. It returns (nil, nil) when
// attestation is not configured.
func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.AttestationPrivateKeyPath == "" {
		return nil, nil
	}
	privBytes, err := os.ReadFile(cfg.AttestationPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubKey := &privKey.PublicKey
	if cfg.AttestationPublicKeyPath != "" {
		pubBytes, err := os.ReadFile(cfg.AttestationPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		if pubKey, err = jwt.ParseRSAPublicKeyFromPEM(pubBytes); err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
	}

	return New(privKey, pubKey, cfg.AttestationIssuer, cfg.AttestationExpiry), nil
}

func New(priv *rsa.PrivateKey, pub *rsa.PublicKey, issuer string, expiry time.Duration) *Provider {
	return &Provider{privateKey: priv, publicKey: pub, issuer: issuer, expiry: expiry, now: time.Now}
}

// Attest signs the identity released by a successful confirmation. The
// verification session id becomes the token subject.
func (p *Provider) Attest(sessionID string, ident domain.VerifiedIdentity) (string, error) {
	now := p.now()
	claims := Claims{
		DocumentType: ident.DocumentType,
		Number:       ident.Number,
		Name:         ident.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	}, jwt.WithIssuer(p.issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
