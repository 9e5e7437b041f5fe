package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "1.2.3"
	if got := String(); !strings.HasPrefix(got, "v1.2.3 (commit: ") {
		t.Fatalf("String: got=%q", got)
	}
}
