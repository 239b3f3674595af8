package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var purposes = []Purpose{Access, Refresh, EmailVerify, PasswordReset}

func TestValidate_ScopeIsolation(t *testing.T) {
	svc := New("secret", TTLs{})
	const subject = "deadpool@example.com"

	for _, p := range purposes {
		raw, _, err := svc.Issue(p, subject)
		if err != nil {
			t.Fatalf("Issue(%s) error = %v", p, err)
		}
		for _, q := range purposes {
			got, err := svc.Validate(raw, q)
			if p == q {
				if err != nil {
					t.Errorf("Validate(%s token, %s) error = %v", p, q, err)
				}
				if got != subject {
					t.Errorf("Validate(%s token, %s) subject = %q, want %q", p, q, got, subject)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidScope) {
				t.Errorf("Validate(%s token, %s) error = %v, want ErrInvalidScope", p, q, err)
			}
		}
	}
}

func TestValidate_ZeroTTLNeverValid(t *testing.T) {
	svc := New("secret", TTLs{})
	raw, _, err := svc.IssueWithTTL(Access, "a@example.com", 0)
	if err != nil {
		t.Fatalf("IssueWithTTL() error = %v", err)
	}
	if _, err := svc.Validate(raw, Access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_Expired(t *testing.T) {
	now := time.Date(2024, 4, 22, 12, 0, 0, 0, time.UTC)
	svc := New("secret", TTLs{}, WithClock(func() time.Time { return now }))

	raw, exp, err := svc.Issue(PasswordReset, "a@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if want := now.Add(10 * time.Minute); !exp.Equal(want) {
		t.Errorf("exp = %v, want %v", exp, want)
	}

	now = now.Add(9 * time.Minute)
	if _, err := svc.Validate(raw, PasswordReset); err != nil {
		t.Errorf("Validate() before expiry error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := svc.Validate(raw, PasswordReset); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() after expiry error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_Tampered(t *testing.T) {
	svc := New("secret", TTLs{})
	raw, _, err := svc.Issue(Access, "a@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d parts, want 3", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := svc.Validate(tampered, Access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate(tampered) error = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Validate("not-a-jwt", Access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate(garbage) error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	raw, _, err := New("one", TTLs{}).Issue(Refresh, "a@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := New("two", TTLs{}).Validate(raw, Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Scope: Access,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	if _, err := New("secret", TTLs{}).Validate(raw, Access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate(alg=none) error = %v, want ErrInvalidToken", err)
	}
}

func TestIssue_UniquePerCall(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := New("secret", TTLs{}, WithClock(func() time.Time { return now }))

	a, _, _ := svc.Issue(Refresh, "a@example.com")
	b, _, _ := svc.Issue(Refresh, "a@example.com")
	if a == b {
		t.Error("two refresh tokens minted at the same instant should differ")
	}
}

func TestNew_DefaultTTLs(t *testing.T) {
	svc := New("secret", TTLs{Access: 5 * time.Minute})
	if got := svc.TTL(Access); got != 5*time.Minute {
		t.Errorf("TTL(Access) = %v, want 5m", got)
	}
	if got := svc.TTL(Refresh); got != DefaultTTLs.Refresh {
		t.Errorf("TTL(Refresh) = %v, want %v", got, DefaultTTLs.Refresh)
	}
	if got := svc.TTL(PasswordReset); got != 10*time.Minute {
		t.Errorf("TTL(PasswordReset) = %v, want 10m", got)
	}
}
