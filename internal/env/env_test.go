package env

import "testing"

func TestLoadEnv(t *testing.T) {
	t.Cleanup(func() { Value = defaults() })

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DRY_RUN_MODE", "true")
	t.Setenv("RENDER_DPI", "not-a-number")
	t.Setenv("BROTHER_QL_PATH", "/opt/brother_ql")

	LoadEnv()

	if Value.ServerPort != 9090 {
		t.Fatalf("ServerPort: got=%d want=%d", Value.ServerPort, 9090)
	}
	if !Value.DryRunMode {
		t.Fatalf("DryRunMode should be true")
	}
	if Value.RenderDPI != 300 {
		t.Fatalf("invalid RENDER_DPI should fall back: got=%d", Value.RenderDPI)
	}
	if Value.BrotherQL != "/opt/brother_ql" || Value.Pdftoppm != "pdftoppm" {
		t.Fatalf("tool paths: got=%q %q", Value.BrotherQL, Value.Pdftoppm)
	}
}
