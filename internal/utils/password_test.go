package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("Hash() returned the plain password")
	}
	if !h.Verify(hash, "s3cret") {
		t.Error("Verify() rejected the right password")
	}
	if h.Verify(hash, "wrong") {
		t.Error("Verify() accepted a wrong password")
	}
}

func TestBcryptHasher_CostFallback(t *testing.T) {
	hash, err := BcryptHasher{Cost: 99}.Hash("x")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost() error = %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}
