package chain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClassifyRevertIsRejected(t *testing.T) {
	oe := classify("grant", errors.New("execution reverted: caller is not the record owner"))
	if oe.Kind != KindRejected {
		t.Errorf("Kind = %v, want KindRejected", oe.Kind)
	}
	if oe.Op != "grant" {
		t.Errorf("Op = %q, want grant", oe.Op)
	}
}

func TestClassifyTransportIsUnavailable(t *testing.T) {
	for _, err := range []error{
		errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"),
		context.DeadlineExceeded,
		context.Canceled,
	} {
		if oe := classify("check_access", err); oe.Kind != KindUnavailable {
			t.Errorf("classify(%v).Kind = %v, want KindUnavailable", err, oe.Kind)
		}
	}
}

func TestOracleErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	var err error = &OracleError{Kind: KindUnavailable, Op: "anchor_hash", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("OracleError does not unwrap to its cause")
	}
	oe, ok := AsOracleError(err)
	if !ok || oe.Kind != KindUnavailable {
		t.Errorf("AsOracleError = %v, %v", oe, ok)
	}
}

func TestParseContentHash(t *testing.T) {
	valid := strings.Repeat("ab", 32)
	if _, err := parseContentHash("op", valid); err != nil {
		t.Errorf("valid hash rejected: %v", err)
	}

	for _, bad := range []string{"", "abcd", strings.Repeat("a", 63), strings.Repeat("z", 64)} {
		_, err := parseContentHash("op", bad)
		oe, ok := AsOracleError(err)
		if !ok || oe.Kind != KindBadInput {
			t.Errorf("parseContentHash(%q): err = %v, want KindBadInput", bad, err)
		}
	}
}

func TestIsHexAddress(t *testing.T) {
	cases := map[string]bool{
		"0x70997970C51812dc3A010C7d01b50e0d17dc79C8": true,
		"0x0000000000000000000000000000000000000000": true,
		"70997970C51812dc3A010C7d01b50e0d17dc79C8":   false, // no prefix
		"0x7099":  false, // too short
		"":        false,
		"0x70997970C51812dc3A010C7d01b50e0d17dc79C8ff": false, // too long
		"0xzz997970C51812dc3A010C7d01b50e0d17dc79C8":   false, // not hex
	}
	for addr, want := range cases {
		if got := IsHexAddress(addr); got != want {
			t.Errorf("IsHexAddress(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestParseHashAndDelegateRejectsBadDelegate(t *testing.T) {
	valid := strings.Repeat("ab", 32)
	_, _, err := parseHashAndDelegate("grant", valid, "not-an-address")
	oe, ok := AsOracleError(err)
	if !ok || oe.Kind != KindBadInput {
		t.Errorf("err = %v, want KindBadInput", err)
	}
}

func TestErrorKindString(t *testing.T) {
	if KindUnavailable.String() != "unavailable" || KindRejected.String() != "rejected" || KindBadInput.String() != "bad_input" {
		t.Error("ErrorKind string labels changed")
	}
}
