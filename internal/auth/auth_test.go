package auth

import (
	"errors"
	"testing"
	"time"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	tok, err := Mint("s3cret", Claims{Tenant: "acme"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := Verify("s3cret", tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Tenant != "acme" {
		t.Fatalf("tenant: %q", claims.Tenant)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, _ := Mint("s3cret", Claims{Tenant: "acme"})
	if _, err := Verify("other", tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	tok, _ := Mint("s3cret", Claims{Tenant: "acme"})
	tampered := "x" + tok[1:]
	if _, err := Verify("s3cret", tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "nodot", ".leadingdot", "trailingdot.", "a.b"} {
		if _, err := Verify("s3cret", tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	tok, _ := Mint("s3cret", Claims{Tenant: "acme", ExpMs: time.Now().UnixMilli() - 1000})
	if _, err := Verify("s3cret", tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMintRequiresSecret(t *testing.T) {
	if _, err := Mint("", Claims{Tenant: "acme"}); err == nil {
		t.Fatalf("expected error")
	}
}
