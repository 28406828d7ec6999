package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestError(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("verifying: %w", WrapError(KindPublicKeyFetch, cause, "fetching keys from %s", "example.com"))

	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantMsg  string
	}{
		{
			name:     "plain",
			err:      NewError(KindExpiredToken, "ID token has expired at %d", 42),
			wantKind: KindExpiredToken,
			wantMsg:  "ID token has expired at 42",
		},
		{
			name:     "wrapped cause",
			err:      wrapped,
			wantKind: KindPublicKeyFetch,
			wantMsg:  "verifying: fetching keys from example.com: connection refused",
		},
		{
			name:    "foreign error",
			err:     context.Canceled,
			wantMsg: "context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.wantKind {
				t.Errorf("KindOf() = %q, want %q", got, tt.wantKind)
			}
			if tt.wantKind != "" && !IsKind(tt.err, tt.wantKind) {
				t.Errorf("IsKind(%q) = false", tt.wantKind)
			}
			if IsKind(tt.err, KindRevoked) {
				t.Error("IsKind() matched an unrelated kind")
			}
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	if !errors.Is(wrapped, cause) {
		t.Error("expected the cause to be reachable through the chain")
	}
	if errors.Is(NewError(KindRevoked, "a"), NewError(KindRevoked, "a")) {
		t.Error("errors with messages must not match by kind alone")
	}
}

func TestFixedClock(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock := NewFixedClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", clock.Now(), start)
	}
	clock.Advance(time.Minute)
	if want := start.Add(time.Minute); !clock.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", clock.Now(), want)
	}
	clock.Set(start)
	if !clock.Now().Equal(start) {
		t.Errorf("Now() after Set = %v, want %v", clock.Now(), start)
	}
}

func TestTokenAttributes(t *testing.T) {
	tok := &DecodedToken{
		Issuer:   "https://securetoken.google.com/project-1",
		Audience: "project-1",
		UID:      "alice",
		Firebase: FirebaseInfo{SignInProvider: "password", Tenant: "tenant-a"},
		Claims:   map[string]any{"admin": true, "uid": "spoofed"},
	}

	attrs := TokenAttributes(tok)
	want := map[string]any{
		"admin":            true,
		"uid":              "alice",
		"iss":              "https://securetoken.google.com/project-1",
		"aud":              "project-1",
		"tenant":           "tenant-a",
		"sign_in_provider": "password",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attribute %q = %v, want %v", k, attrs[k], v)
		}
	}
	if _, ok := tok.Claims["iss"]; ok {
		t.Error("TokenAttributes must not modify the token's claims")
	}
}
