package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	signed, exp, err := tokens.Issue(42, "a@b.co")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is in the past", exp)
	}

	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@b.co" || claims.Subject != "42" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	signed, _, _ := tokens.Issue(1, "a@b.co")

	other := NewTokens("other", time.Hour)
	if _, err := other.Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(wrong secret) error = %v, want ErrInvalidToken", err)
	}

	later := NewTokens("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := later.Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(expired) error = %v, want ErrInvalidToken", err)
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := tokens.Parse(none); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(alg none) error = %v, want ErrInvalidToken", err)
	}

	if _, err := tokens.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(garbage) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokens_Revoke(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	first, _, _ := tokens.Issue(1, "a@b.co")
	second, _, _ := tokens.Issue(1, "a@b.co")

	claims, err := tokens.Parse(first)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tokens.Revoke(claims)

	if _, err := tokens.Parse(first); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("Parse(revoked) error = %v, want ErrRevokedToken", err)
	}
	if _, err := tokens.Parse(second); err != nil {
		t.Errorf("Parse(other token) error = %v", err)
	}
}

func TestPassword(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	defer func() { BcryptCost = bcrypt.DefaultCost }()

	hash, err := HashPassword("Secret#123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := CheckPassword(hash, "Secret#123"); err != nil {
		t.Errorf("CheckPassword(correct) error = %v", err)
	}
	if err := CheckPassword(hash, "secret#123"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("CheckPassword(wrong) error = %v, want ErrBadCredentials", err)
	}
}

func TestEvents(t *testing.T) {
	e := NewEvents()
	a, stopA := e.Subscribe()
	b, stopB := e.Subscribe()
	defer stopB()

	e.Emit(Event{Kind: SignedOut, UserID: 5})
	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Kind != SignedOut || ev.UserID != 5 || ev.At.IsZero() {
				t.Errorf("%s got %+v", name, ev)
			}
		default:
			t.Errorf("%s received nothing", name)
		}
	}

	stopA()
	stopA()
	if _, ok := <-a; ok {
		t.Error("stopped subscription still open")
	}
	e.Emit(Event{Kind: SignedIn, UserID: 5})

	e.Close()
	if ev, ok := <-b; !ok || ev.Kind != SignedIn {
		t.Errorf("b got %+v, %v; want buffered signed_in", ev, ok)
	}
	if _, ok := <-b; ok {
		t.Error("Close() left subscription open")
	}
}
