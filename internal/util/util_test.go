package util

import (
	"strings"
	"testing"
)

func TestCertHash(t *testing.T) {
	h1 := CertHash([]byte("some der bytes"))
	h2 := CertHash([]byte("some der bytes"))
	if h1 != h2 {
		t.Error("hash should be deterministic")
	}
	if h1 != strings.ToLower(h1) {
		t.Error("hash should be lowercase")
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestNormalizeCertHash(t *testing.T) {
	if NormalizeCertHash("AB12cd") != "ab12cd" {
		t.Error("hash should be lowercased")
	}
}

func TestPinHashRoundTrip(t *testing.T) {
	h, err := HashPin("1234")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPin("1234", h) {
		t.Error("correct PIN should verify")
	}
	if VerifyPin("4321", h) {
		t.Error("wrong PIN should not verify")
	}
}

func TestNormalizeDnValue(t *testing.T) {
	// "é" as combining sequence vs precomposed should normalize to the same value.
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	if composed == decomposed {
		t.Fatal("fixture strings must differ before normalization")
	}
	if NormalizeDnValue(composed) != NormalizeDnValue(decomposed) {
		t.Error("NFC normalization should unify composition forms")
	}
}
