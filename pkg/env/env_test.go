package env

import "testing"

func TestFirst(t *testing.T) {
	t.Setenv("AH_TEST_PRIMARY", "")
	t.Setenv("AH_TEST_LEGACY", " console ")

	if got := First("json", "AH_TEST_PRIMARY", "AH_TEST_LEGACY"); got != "console" {
		t.Fatalf("expected legacy value, got %q", got)
	}
	t.Setenv("AH_TEST_PRIMARY", "json")
	if got := First("console", "AH_TEST_PRIMARY", "AH_TEST_LEGACY"); got != "json" {
		t.Fatalf("expected primary value, got %q", got)
	}
	if got := First("json", "AH_TEST_MISSING"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
