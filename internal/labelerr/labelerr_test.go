package labelerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestCodesSurviveWrapping(t *testing.T) {
	base := Config("No IP address or USB device defined.")
	wrapped := fmt.Errorf("dispatch: %w", base)

	if !Is(wrapped, CodeConfig) {
		t.Fatalf("Is(wrapped, CodeConfig) = false")
	}
	if Is(wrapped, CodeDevice) {
		t.Fatalf("Is(wrapped, CodeDevice) = true")
	}
	if got := GetCode(wrapped); got != CodeConfig {
		t.Fatalf("GetCode: got=%q want=%q", got, CodeConfig)
	}
	if got := UserMessage(wrapped); got != "No IP address or USB device defined." {
		t.Fatalf("UserMessage: got=%q", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(CodeRender, io.ErrUnexpectedEOF, "failed to read PDF")

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("errors.Is did not reach the cause")
	}
	if got, want := err.Error(), "RENDER_ERROR: failed to read PDF: unexpected EOF"; got != want {
		t.Fatalf("Error(): got=%q want=%q", got, want)
	}
	if got := GetCode(io.EOF); got != "" {
		t.Fatalf("GetCode on plain error: got=%q want empty", got)
	}
}
