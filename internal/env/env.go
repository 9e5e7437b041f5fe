package env

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

// EnvValue はプロセス全体の実行時設定。プリンター設定は settings パッケージ側（DB）で管理する。
type EnvValue struct {
	ServerPort   int
	DebugMode    bool
	DryRunMode   bool
	BrotherQL    string // brother_ql 実行ファイル
	Pdftoppm     string // pdftoppm 実行ファイル
	RenderDPI    int
	CatalogPath  string // 空なら組み込みカタログ
	QueueSize    int
	LabelTTLMins int
}

var Value = defaults()

func defaults() EnvValue {
	return EnvValue{
		ServerPort:   8080,
		BrotherQL:    "brother_ql",
		Pdftoppm:     "pdftoppm",
		RenderDPI:    300,
		QueueSize:    100,
		LabelTTLMins: 10,
	}
}

// LoadEnv reads .env (if present) and then the process environment into Value.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	v := defaults()
	v.ServerPort = intEnv("SERVER_PORT", v.ServerPort)
	v.DebugMode = boolEnv("DEBUG_MODE", v.DebugMode)
	v.DryRunMode = boolEnv("DRY_RUN_MODE", v.DryRunMode)
	v.BrotherQL = stringEnv("BROTHER_QL_PATH", v.BrotherQL)
	v.Pdftoppm = stringEnv("PDFTOPPM_PATH", v.Pdftoppm)
	v.RenderDPI = intEnv("RENDER_DPI", v.RenderDPI)
	v.CatalogPath = stringEnv("CATALOG_PATH", v.CatalogPath)
	v.QueueSize = intEnv("PRINT_QUEUE_SIZE", v.QueueSize)
	v.LabelTTLMins = intEnv("LABEL_RETENTION_MINUTES", v.LabelTTLMins)
	Value = v

	logger.Debug("Environment loaded",
		zap.Int("server_port", v.ServerPort),
		zap.Bool("dry_run", v.DryRunMode),
		zap.String("brother_ql", v.BrotherQL),
		zap.String("pdftoppm", v.Pdftoppm),
		zap.String("catalog", v.CatalogPath))
}

func stringEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("Invalid integer in environment, using default",
			zap.String("key", key), zap.String("value", raw), zap.Int("default", fallback))
		return fallback
	}
	return val
}

func boolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warn("Invalid boolean in environment, using default",
			zap.String("key", key), zap.String("value", raw), zap.Bool("default", fallback))
		return fallback
	}
	return val
}
