package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetRoutesPackageLevelCalls(t *testing.T) {
	old := L()
	t.Cleanup(func() { Set(old) })

	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))

	Debug("hidden")
	Info("Print job sent successfully", zap.String("job_id", "abc"))
	Warn("Printer probe failed")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries: got=%d want=2", len(entries))
	}
	if entries[0].Message != "Print job sent successfully" || entries[0].ContextMap()["job_id"] != "abc" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("level: got=%v want=%v", entries[1].Level, zapcore.WarnLevel)
	}
}
