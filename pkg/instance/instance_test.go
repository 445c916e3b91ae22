package instance

import "testing"

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv(EnvWorkerID, "cron-7")
	if got := ID(); got != "cron-7" {
		t.Fatalf("expected env worker id, got %q", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv(EnvWorkerID, "")
	if got := ID(); got == "" {
		t.Fatal("expected non-empty fallback id")
	}
}
