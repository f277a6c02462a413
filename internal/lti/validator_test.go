package lti

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://moodle.ugr.es"
	testClientID = "chatbot-tool"
	testKid      = "platform-key-1"
)

type platformFixture struct {
	key       *rsa.PrivateKey
	validator *Validator
	jwksHits  int
}

func newPlatformFixture(t *testing.T) *platformFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	fix := &platformFixture{key: key}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fix.jwksHits++
		doc := map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"kid": testKid,
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		}
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)

	fix.validator = NewValidator(testIssuer, testClientID, srv.URL, nil)
	return fix
}

func (f *platformFixture) signToken(t *testing.T, mutate func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "moodle-user-42",
		"name":  "Estudiante Prueba",
		"nonce": "nonce-" + t.Name(),
		"exp":   time.Now().Add(5 * time.Minute).Unix(),
		"iat":   time.Now().Unix(),
		claimMessageType:  messageTypeResourceLink,
		claimVersion:      ltiVersion,
		claimDeploymentID: "deploy-1",
		claimContext: map[string]any{
			"id":    "ctx-99",
			"label": "IS",
			"title": "Ingeniería de Servidores",
		},
		claimRoles: []any{"http://purl.imsglobal.org/vocab/lis/v2/membership#Learner"},
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(f.key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return signed
}

func TestValidateIDTokenAccepted(t *testing.T) {
	fix := newPlatformFixture(t)
	launch, err := fix.validator.ValidateIDToken(context.Background(), fix.signToken(t, nil))
	if err != nil {
		t.Fatalf("ValidateIDToken: %v", err)
	}
	if launch.UserID != "moodle-user-42" {
		t.Errorf("UserID = %q", launch.UserID)
	}
	if launch.Subject != "ingenieria_de_servidores" {
		t.Errorf("Subject = %q", launch.Subject)
	}
	if launch.ContextID != "ctx-99" || launch.ContextLabel != "IS" {
		t.Errorf("context = %q / %q", launch.ContextID, launch.ContextLabel)
	}
	if len(launch.Roles) != 1 {
		t.Errorf("roles = %v", launch.Roles)
	}
}

func TestValidateIDTokenRejectsWrongIssuer(t *testing.T) {
	fix := newPlatformFixture(t)
	token := fix.signToken(t, func(c jwt.MapClaims) { c["iss"] = "https://otra-plataforma.es" })
	if _, err := fix.validator.ValidateIDToken(context.Background(), token); err == nil {
		t.Fatal("wrong issuer accepted")
	}
}

func TestValidateIDTokenRejectsWrongAudience(t *testing.T) {
	fix := newPlatformFixture(t)
	token := fix.signToken(t, func(c jwt.MapClaims) { c["aud"] = "otro-cliente" })
	if _, err := fix.validator.ValidateIDToken(context.Background(), token); err == nil {
		t.Fatal("wrong audience accepted")
	}
}

func TestValidateIDTokenRejectsExpired(t *testing.T) {
	fix := newPlatformFixture(t)
	token := fix.signToken(t, func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() })
	if _, err := fix.validator.ValidateIDToken(context.Background(), token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestValidateIDTokenRejectsWrongKey(t *testing.T) {
	fix := newPlatformFixture(t)
	rogue, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": testIssuer, "aud": testClientID, "sub": "x",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	token.Header["kid"] = testKid
	signed, err := token.SignedString(rogue)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := fix.validator.ValidateIDToken(context.Background(), signed); err == nil {
		t.Fatal("token signed with a foreign key accepted")
	}
}

func TestValidateIDTokenRejectsNonceReplay(t *testing.T) {
	fix := newPlatformFixture(t)
	ctx := context.Background()
	token := fix.signToken(t, nil)
	if _, err := fix.validator.ValidateIDToken(ctx, token); err != nil {
		t.Fatalf("first use rejected: %v", err)
	}
	_, err := fix.validator.ValidateIDToken(ctx, token)
	if err == nil || !strings.Contains(err.Error(), "nonce") {
		t.Fatalf("replay not rejected: %v", err)
	}
}

func TestValidateIDTokenRejectsWrongMessageType(t *testing.T) {
	fix := newPlatformFixture(t)
	token := fix.signToken(t, func(c jwt.MapClaims) { c[claimMessageType] = "LtiDeepLinkingRequest" })
	if _, err := fix.validator.ValidateIDToken(context.Background(), token); err == nil {
		t.Fatal("deep linking request accepted as resource link launch")
	}
}

func TestValidateIDTokenRejectsMissingDeployment(t *testing.T) {
	fix := newPlatformFixture(t)
	token := fix.signToken(t, func(c jwt.MapClaims) { delete(c, claimDeploymentID) })
	if _, err := fix.validator.ValidateIDToken(context.Background(), token); err == nil {
		t.Fatal("missing deployment_id accepted")
	}
}

func TestJWKSCachedAcrossValidations(t *testing.T) {
	fix := newPlatformFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		token := fix.signToken(t, func(c jwt.MapClaims) { c["nonce"] = "n" + string(rune('a'+i)) })
		if _, err := fix.validator.ValidateIDToken(ctx, token); err != nil {
			t.Fatalf("validation %d: %v", i, err)
		}
	}
	if fix.jwksHits != 1 {
		t.Errorf("JWKS fetched %d times, want 1", fix.jwksHits)
	}
}

func TestSubjectFromLabel(t *testing.T) {
	cases := map[string]string{
		"IS":           "ingenieria_de_servidores",
		"MAC":          "modelos_avanzados_computacion",
		"META":         "metaheuristicas",
		"IE1":          "inferencia_estadistica_1",
		"EST":          "estadistica",
		"is":           "ingenieria_de_servidores",
		"Redes Curso":  "redes_curso",
		"Desconocida":  "desconocida",
	}
	for label, want := range cases {
		if got := SubjectFromLabel(label); got != want {
			t.Errorf("SubjectFromLabel(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestStateStoreSingleUse(t *testing.T) {
	store := NewStateStore()
	state, nonce, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	got, err := store.Consume(state)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got != nonce {
		t.Errorf("nonce mismatch: %q vs %q", got, nonce)
	}
	if _, err := store.Consume(state); err == nil {
		t.Fatal("state consumed twice")
	}
}

func TestStateStoreExpiry(t *testing.T) {
	store := NewStateStore()
	base := time.Now()
	store.now = func() time.Time { return base }
	state, _, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	store.now = func() time.Time { return base.Add(stateTTL + time.Minute) }
	if _, err := store.Consume(state); err == nil {
		t.Fatal("expired state accepted")
	}
}

func TestMemoryNonceStoreExpiry(t *testing.T) {
	store := NewMemoryNonceStore()
	base := time.Now()
	store.now = func() time.Time { return base }
	ctx := context.Background()

	seen, err := store.SeenOrStore(ctx, "n1", time.Minute)
	if err != nil || seen {
		t.Fatalf("first store: seen=%v err=%v", seen, err)
	}
	seen, _ = store.SeenOrStore(ctx, "n1", time.Minute)
	if !seen {
		t.Fatal("replay within TTL not detected")
	}

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	seen, _ = store.SeenOrStore(ctx, "n1", time.Minute)
	if seen {
		t.Fatal("expired nonce still flagged as seen")
	}
}
