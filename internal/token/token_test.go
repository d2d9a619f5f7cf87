package token

import (
	"regexp"
	"strings"
	"testing"
)

func TestIssueGrammar(t *testing.T) {
	issuer := NewIssuer("ABA#")

	pattern := regexp.MustCompile(`^ABA#[A-F0-9]{8}$`)
	for i := 0; i < 20; i++ {
		tok := issuer.Issue()
		if !pattern.MatchString(tok) {
			t.Fatalf("token %q does not match expected grammar", tok)
		}
	}
}

func TestIssueUniqueness(t *testing.T) {
	issuer := NewIssuer("ABA#")

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := issuer.Issue()
		if seen[tok] {
			t.Fatalf("duplicate token issued: %q", tok)
		}
		seen[tok] = true
	}
}

func TestSubject(t *testing.T) {
	got := Subject("ABA#1A2B3C4D", "Invitation to Partner")
	want := "[ABA#1A2B3C4D] Invitation to Partner"
	if got != want {
		t.Errorf("Subject() = %q, want %q", got, want)
	}
}

func TestFind(t *testing.T) {
	m := NewMatcher("ABA#")

	tests := []struct {
		name    string
		text    string
		want    string
		wantHit bool
	}{
		{
			name:    "bracketed token in subject",
			text:    "RE: [ABA#1A2B3C4D] Invitation to Partner",
			want:    "ABA#1A2B3C4D",
			wantHit: true,
		},
		{
			name:    "lower case suffix is normalized",
			text:    "re: [aba#1a2b3c4d] invitation",
			want:    "ABA#1A2B3C4D",
			wantHit: true,
		},
		{
			name:    "token mid body",
			text:    "please quote reference [ABA#DEADBEEF] in correspondence",
			want:    "ABA#DEADBEEF",
			wantHit: true,
		},
		{
			name:    "unbracketed token misses",
			text:    "reference ABA#1A2B3C4D here",
			wantHit: false,
		},
		{
			name:    "short suffix misses",
			text:    "[ABA#1A2B]",
			wantHit: false,
		},
		{
			name:    "empty text",
			text:    "",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Find(tt.text)
			if ok != tt.wantHit {
				t.Fatalf("Find(%q) hit = %v, want %v", tt.text, ok, tt.wantHit)
			}
			if ok && got != tt.want {
				t.Errorf("Find(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestFindHonorsPrefixLiterally(t *testing.T) {
	// The "#" must be quoted, not treated as regex syntax.
	m := NewMatcher("ABA#")
	if _, ok := m.Find("[ABAX1A2B3C4D]"); ok {
		t.Error("matched a token with the wrong prefix character")
	}
}

func TestExtractOrder(t *testing.T) {
	m := NewMatcher("ABA#")

	subject := func() string { return "RE: your message" }
	body := func() string { return "see [ABA#11111111] below" }
	html := func() string { return "see [ABA#22222222] below" }

	got, ok := m.Extract(subject, body, html)
	if !ok {
		t.Fatal("expected a token")
	}
	if got != "ABA#11111111" {
		t.Errorf("Extract() = %q, want the earlier source to win", got)
	}
}

func TestExtractSkipsLaterSourcesOnHit(t *testing.T) {
	m := NewMatcher("ABA#")

	called := false
	_, ok := m.Extract(
		func() string { return "[ABA#1A2B3C4D]" },
		func() string { called = true; return "" },
	)
	if !ok {
		t.Fatal("expected a token")
	}
	if called {
		t.Error("later source was materialized after an earlier hit")
	}
}

func TestExtractAllMiss(t *testing.T) {
	m := NewMatcher("ABA#")

	if tok, ok := m.Extract(
		func() string { return "no token here" },
		func() string { return strings.Repeat("x", 100) },
	); ok {
		t.Errorf("expected a miss, got %q", tok)
	}
}
