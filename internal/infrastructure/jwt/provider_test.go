package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-docverify/internal/config"
	"github.com/go-docverify/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T) (privPath, pubPath string, key *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath = filepath.Join(dir, "private.pem")
	pubPath = filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o644))
	return privPath, pubPath, key
}

var ident = domain.VerifiedIdentity{DocumentType: domain.DocumentPAN, Number: "ABCDE1234F", Name: "RAVI KUMAR"}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(&config.Config{AttestationPrivateKeyPath: "/nonexistent/key.pem"})
	assert.ErrorContains(t, err, "read private key")
}

func TestAttestAndVerify(t *testing.T) {
	privPath, pubPath, _ := writeKeys(t)
	p, err := NewProvider(&config.Config{
		AttestationPrivateKeyPath: privPath,
		AttestationPublicKeyPath:  pubPath,
		AttestationIssuer:         "docverify",
		AttestationExpiry:         time.Minute,
	})
	require.NoError(t, err)
	require.NotNil(t, p)

	tok, err := p.Attest("sess-1", ident)
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentPAN, claims.DocumentType)
	assert.Equal(t, "ABCDE1234F", claims.Number)
	assert.Equal(t, "RAVI KUMAR", claims.Name)
	assert.Equal(t, "sess-1", claims.Subject)
	assert.Equal(t, "docverify", claims.Issuer)
}

func TestVerify_Expired(t *testing.T) {
	_, _, key := writeKeys(t)
	p := New(key, &key.PublicKey, "docverify", time.Minute)
	p.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tok, err := p.Attest("sess-1", ident)
	require.NoError(t, err)
	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_WrongIssuer(t *testing.T) {
	_, _, key := writeKeys(t)
	signer := New(key, &key.PublicKey, "someone-else", time.Minute)
	verifier := New(key, &key.PublicKey, "docverify", time.Minute)

	tok, err := signer.Attest("sess-1", ident)
	require.NoError(t, err)
	_, err = verifier.Verify(tok)
	assert.Error(t, err)
}

func TestVerify_Tampered(t *testing.T) {
	_, _, key := writeKeys(t)
	p := New(key, &key.PublicKey, "docverify", time.Minute)
	tok, err := p.Attest("sess-1", ident)
	require.NoError(t, err)
	_, err = p.Verify(tok + "x")
	assert.Error(t, err)
}
