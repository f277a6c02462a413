package lti

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"ceprud-chatbot/internal/logger"
)

// KeyID identifies the tool's signing key in its published JWKS.
const KeyID = "lti-key-1"

const (
	privateKeyFile = "private.pem"
	jwksFile       = "jwks.json"
)

// ToolKey is the tool's RSA keypair used to sign messages towards the
// platform and published as a JWKS for verification.
type ToolKey struct {
	Private *rsa.PrivateKey
	jwks    []byte
}

// LoadOrCreateToolKey loads the keypair from dir, generating and
// persisting a fresh 2048-bit key on first start.
func LoadOrCreateToolKey(dir string) (*ToolKey, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	keyPath := filepath.Join(dir, privateKeyFile)

	if raw, err := os.ReadFile(keyPath); err == nil {
		block, _ := pem.Decode(raw)
		if block == nil {
			return nil, fmt.Errorf("invalid PEM in %s", keyPath)
		}
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return newToolKey(key)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(keyPath, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist private key: %w", err)
	}

	tk, err := newToolKey(key)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, jwksFile), tk.jwks, 0o644); err != nil {
		return nil, fmt.Errorf("failed to persist JWKS: %w", err)
	}
	logger.Info("generated new tool keypair", "dir", dir, "kid", KeyID)
	return tk, nil
}

func newToolKey(key *rsa.PrivateKey) (*ToolKey, error) {
	jwks, err := marshalJWKS(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &ToolKey{Private: key, jwks: jwks}, nil
}

// JWKS returns the public key set as JSON, ready to serve.
func (k *ToolKey) JWKS() []byte {
	return k.jwks
}

func marshalJWKS(pub *rsa.PublicKey) ([]byte, error) {
	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": KeyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	out, err := json.Marshal(jwks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JWKS: %w", err)
	}
	return out, nil
}
