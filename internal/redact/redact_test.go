package redact

import (
	"strings"
	"testing"
)

func TestPII(t *testing.T) {
	input := "Escríbeme a laura@empresa.co o al +57 (300) 123-9876, tarjeta 4242 4242 4242 4242, CC 1.032.456.789"
	out, changed := PII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
	if strings.Contains(out, "laura@empresa.co") || strings.Contains(out, "4242") {
		t.Fatalf("output leaks PII: %q", out)
	}
}

func TestPIIKeepsOrdinaryRequests(t *testing.T) {
	input := "Soy Carlos, necesito 2 días de permiso el 2025-01-15"
	out, changed := PII(input)
	if changed || out != input {
		t.Fatalf("PII(%q) = %q, changed=%v", input, out, changed)
	}
}

func TestPreviewTruncatesAndFlattens(t *testing.T) {
	got := Preview("tengo   gripe\ny fiebre desde ayer", 12)
	if got != "tengo gripe …" {
		t.Fatalf("Preview() = %q", got)
	}
	if got := Preview("corto", 0); got != "corto" {
		t.Fatalf("Preview(max=0) = %q", got)
	}
}
