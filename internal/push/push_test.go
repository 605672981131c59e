package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/castle/internal/model"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

// testSubscription returns a subscription with real device keys pointing at
// endpoint.
func testSubscription(t *testing.T, endpoint string) *model.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate device key: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}
	return &model.PushSubscription{
		StaffName: "Nora",
		Endpoint:  endpoint,
		P256dhKey: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		AuthKey:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

func testService(t *testing.T, client *http.Client) *Service {
	t.Helper()
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}
	return NewService(pub, priv, WithHTTPClient(client), WithSubscriber("mailto:test@castle.local"))
}

func TestSend(t *testing.T) {
	var gotTTL, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTTL = r.Header.Get("TTL")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	svc := testService(t, server.Client())
	err := svc.Send(context.Background(), testSubscription(t, server.URL), Payload{Title: "Opening", Body: "Nora completed Bar Setup"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotTTL != "3600" {
		t.Errorf("TTL = %q, want 3600", gotTTL)
	}
	if gotAuth == "" {
		t.Error("expected VAPID Authorization header")
	}
}

func TestSendExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	svc := testService(t, server.Client())
	err := svc.Send(context.Background(), testSubscription(t, server.URL), Payload{Title: "x"})
	if !errors.Is(err, ErrExpired) {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestSendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := testService(t, server.Client())
	err := svc.Send(context.Background(), testSubscription(t, server.URL), Payload{Title: "x"})
	if err == nil || errors.Is(err, ErrExpired) {
		t.Errorf("err = %v, want non-expiry error", err)
	}
}

func TestConfigured(t *testing.T) {
	if NewService("", "").Configured() {
		t.Error("expected unconfigured service")
	}
	if !NewService("pub", "priv").Configured() {
		t.Error("expected configured service")
	}
}
