package scanner

import (
	"context"
	"strings"
	"testing"

	"PolicyDigest/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) ([]domain.Article, error) { return nil, nil }

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(namedScanner("mss"))
	reg.Register(namedScanner("kised"))
	reg.Register(nil)

	if got := reg.Names(); strings.Join(got, ",") != "kised,mss" {
		t.Fatalf("unexpected names: %v", got)
	}
	if _, err := reg.Resolve("mss"); err != nil {
		t.Fatalf("resolve mss: %v", err)
	}

	_, err := reg.Resolve("kstartup")
	if err == nil || !strings.Contains(err.Error(), "kised, mss") {
		t.Fatalf("expected error listing known scanners, got %v", err)
	}
}

func TestZeroRegistryAcceptsScanners(t *testing.T) {
	var reg Registry
	reg.Register(namedScanner("bizinfo"))

	if _, err := reg.Resolve("bizinfo"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
}

func TestRequestOption(t *testing.T) {
	req := Request{Options: map[string]string{"board": " 87 ", "empty": "  "}}

	if got := req.Option("board", "86"); got != "87" {
		t.Fatalf("board = %q", got)
	}
	if got := req.Option("empty", "86"); got != "86" {
		t.Fatalf("empty = %q", got)
	}
	if got := (Request{}).Option("board", "86"); got != "86" {
		t.Fatalf("nil options = %q", got)
	}
}
