package textnorm

import (
	"reflect"
	"testing"
)

func TestNormalizeStripsPunctuationAndLowercases(t *testing.T) {
	n := Normalize("  What are your Business Hours?! ")
	if n.Lowered != "what are your business hours?!" {
		t.Fatalf("Lowered = %q", n.Lowered)
	}
	want := []string{"what", "are", "your", "business", "hours"}
	if !reflect.DeepEqual(n.Tokens, want) {
		t.Fatalf("Tokens = %v, want %v", n.Tokens, want)
	}
	wantFiltered := []string{"business", "hours"}
	if !reflect.DeepEqual(n.Filtered, wantFiltered) {
		t.Fatalf("Filtered = %v, want %v", n.Filtered, wantFiltered)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := Normalize("   \t\n ")
	if !n.IsEmpty() {
		t.Fatalf("IsEmpty() = false for blank input: %+v", n)
	}
	if len(n.Tokens) != 0 || len(n.Filtered) != 0 {
		t.Fatalf("expected no tokens, got %v / %v", n.Tokens, n.Filtered)
	}
}

func TestNormalizeKeepsContractions(t *testing.T) {
	n := Normalize("This isn't working!")
	want := []string{"this", "isn't", "working"}
	if !reflect.DeepEqual(n.Tokens, want) {
		t.Fatalf("Tokens = %v, want %v", n.Tokens, want)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	a := Normalize("Schedule a Demo for Tuesday")
	b := Normalize("Schedule a Demo for Tuesday")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("normalization not deterministic: %+v vs %+v", a, b)
	}
}
