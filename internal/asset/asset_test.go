package asset

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := map[string]Asset{
		"BTC":   BTC,
		"eth":   ETH,
		" sol ": SOL,
		"Jlp":   JLP,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", in, want, got)
		}
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	_, err := Parse("DOGE")
	if !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestIsHedge(t *testing.T) {
	for _, a := range Hedges {
		if !a.IsHedge() {
			t.Fatalf("expected %s to be a hedge asset", a)
		}
	}
	if JLP.IsHedge() {
		t.Fatalf("anchor must not be a hedge asset")
	}
}
