package lti

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ceprud-chatbot/internal/logger"
)

// LTI 1.3 claim URIs.
const (
	claimMessageType  = "https://purl.imsglobal.org/spec/lti/claim/message_type"
	claimVersion      = "https://purl.imsglobal.org/spec/lti/claim/version"
	claimContext      = "https://purl.imsglobal.org/spec/lti/claim/context"
	claimResourceLink = "https://purl.imsglobal.org/spec/lti/claim/resource_link"
	claimRoles        = "https://purl.imsglobal.org/spec/lti/claim/roles"
	claimDeploymentID = "https://purl.imsglobal.org/spec/lti/claim/deployment_id"

	messageTypeResourceLink = "LtiResourceLinkRequest"
	ltiVersion              = "1.3.0"

	nonceTTL     = 10 * time.Minute
	jwksCacheTTL = time.Hour
)

// Launch is a validated resource link launch.
type Launch struct {
	UserID       string
	Name         string
	Nonce        string
	Roles        []string
	ContextID    string
	ContextLabel string
	ContextTitle string
	DeploymentID string
	Subject      string
}

// NonceStore remembers launch nonces long enough to reject replays.
type NonceStore interface {
	// SeenOrStore records nonce and reports whether it was already
	// present.
	SeenOrStore(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

// Validator verifies platform-signed id_tokens against the platform's
// published JWKS.
type Validator struct {
	issuer     string
	clientID   string
	jwksURL    string
	httpClient *http.Client
	nonces     NonceStore

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	now       func() time.Time
}

func NewValidator(issuer, clientID, jwksURL string, nonces NonceStore) *Validator {
	if nonces == nil {
		nonces = NewMemoryNonceStore()
	}
	return &Validator{
		issuer:     issuer,
		clientID:   clientID,
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		nonces:     nonces,
		now:        time.Now,
	}
}

// ValidateIDToken checks signature, issuer, audience, expiry, message
// type, version and nonce, and extracts the launch context.
func (v *Validator) ValidateIDToken(ctx context.Context, rawToken string) (*Launch, error) {
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.platformKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("id_token rejected: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("id_token has no claims")
	}

	if mt, _ := claims[claimMessageType].(string); mt != messageTypeResourceLink {
		return nil, fmt.Errorf("unsupported message type %q", claims[claimMessageType])
	}
	if ver, _ := claims[claimVersion].(string); ver != ltiVersion {
		return nil, fmt.Errorf("unsupported LTI version %q", claims[claimVersion])
	}

	deploymentID, _ := claims[claimDeploymentID].(string)
	if deploymentID == "" {
		return nil, errors.New("id_token missing deployment_id")
	}

	nonce, _ := claims["nonce"].(string)
	if nonce == "" {
		return nil, errors.New("id_token missing nonce")
	}
	seen, err := v.nonces.SeenOrStore(ctx, nonce, nonceTTL)
	if err != nil {
		return nil, fmt.Errorf("nonce check failed: %w", err)
	}
	if seen {
		return nil, errors.New("id_token nonce already used")
	}

	launch := &Launch{
		UserID:       stringClaim(claims, "sub"),
		Name:         stringClaim(claims, "name"),
		Nonce:        nonce,
		DeploymentID: deploymentID,
	}
	if launch.UserID == "" {
		return nil, errors.New("id_token missing sub")
	}

	if rawCtx, ok := claims[claimContext].(map[string]interface{}); ok {
		launch.ContextID, _ = rawCtx["id"].(string)
		launch.ContextLabel, _ = rawCtx["label"].(string)
		launch.ContextTitle, _ = rawCtx["title"].(string)
	}
	if launch.ContextID == "" {
		return nil, errors.New("id_token missing context")
	}
	launch.Subject = SubjectFromLabel(launch.ContextLabel)

	if rawRoles, ok := claims[claimRoles].([]interface{}); ok {
		for _, r := range rawRoles {
			if role, ok := r.(string); ok {
				launch.Roles = append(launch.Roles, role)
			}
		}
	}
	return launch, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// platformKey returns the platform's public key for kid, refreshing
// the cached JWKS when it is stale or the kid is unknown.
func (v *Validator) platformKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fresh := v.now().Sub(v.fetchedAt) < jwksCacheTTL
	if key, ok := v.keys[kid]; ok && fresh {
		return key, nil
	}
	if !fresh || v.keys[kid] == nil {
		if err := v.refreshKeysLocked(ctx); err != nil {
			return nil, err
		}
	}
	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("platform JWKS has no key %q", kid)
	}
	return key, nil
}

func (v *Validator) refreshKeysLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build JWKS request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch platform JWKS: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("platform JWKS returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read platform JWKS: %w", err)
	}

	var doc struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse platform JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		n, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		e, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}
	}
	if len(keys) == 0 {
		return errors.New("platform JWKS contains no usable keys")
	}
	v.keys = keys
	v.fetchedAt = v.now()
	logger.Debug("refreshed platform JWKS", "keys", len(keys))
	return nil
}
