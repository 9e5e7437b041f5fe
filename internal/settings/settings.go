package settings

import (
	"database/sql"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

// 設定キー
const (
	KeyModel       = "MODEL"
	KeyMediaType   = "TYPE"
	KeyIPAddress   = "IP_ADDRESS"
	KeyUSBDevice   = "USB_DEVICE"
	KeyAutoCut     = "AUTO_CUT"
	KeyRotation    = "ROTATION"
	KeyCompression = "COMPRESSION"
	KeyHQ          = "HQ"
)

// EnvPrefix is prepended to a key when migrating values from the environment.
const EnvPrefix = "BROTHER_LABEL_"

type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindChoice Kind = "choice"
)

// Descriptor describes one persisted setting. Choices is evaluated against the
// injected catalog each time settings are presented.
type Descriptor struct {
	Key         string
	Name        string
	Description string
	Default     string
	Kind        Kind
	Choices     func(c *catalog.Catalog) []catalog.Choice
}

type Setting struct {
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Value       string           `json:"value"`
	Default     string           `json:"default"`
	Kind        Kind             `json:"kind"`
	Description string           `json:"description"`
	Choices     []catalog.Choice `json:"choices,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at,omitempty"`
}

// 設定の定義（表示順）
var Descriptors = []Descriptor{
	{
		Key: KeyModel, Name: "Model", Default: "PT-P750W", Kind: KindChoice,
		Description: "Select model of Brother printer",
		Choices:     (*catalog.Catalog).ModelChoices,
	},
	{
		Key: KeyMediaType, Name: "Type", Default: "12", Kind: KindChoice,
		Description: "Select label media type",
		Choices:     (*catalog.Catalog).MediaChoices,
	},
	{
		Key: KeyIPAddress, Name: "IP Address", Default: "", Kind: KindString,
		Description: "IP address of the brother label printer",
	},
	{
		Key: KeyUSBDevice, Name: "USB Device", Default: "", Kind: KindString,
		Description: "USB device identifier of the label printer (VID:PID/SERIAL)",
	},
	{
		Key: KeyAutoCut, Name: "Auto Cut", Default: "true", Kind: KindBool,
		Description: "Cut each label after printing",
	},
	{
		Key: KeyRotation, Name: "Rotation", Default: "0", Kind: KindChoice,
		Description: "Rotation of the image on the label",
		Choices:     func(*catalog.Catalog) []catalog.Choice { return catalog.RotationChoices() },
	},
	{
		Key: KeyCompression, Name: "Compression", Default: "false", Kind: KindBool,
		Description: "Enable image compression option (required for some printer models)",
	},
	{
		Key: KeyHQ, Name: "High Quality", Default: "true", Kind: KindBool,
		Description: "Enable high quality option (required for some printers)",
	},
}

var descriptorIndex = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(Descriptors))
	for _, d := range Descriptors {
		m[d.Key] = d
	}
	return m
}()

// Lookup returns the descriptor for key.
func Lookup(key string) (Descriptor, bool) {
	d, ok := descriptorIndex[key]
	return d, ok
}

// PrintSettings is a typed snapshot of the printer settings.
type PrintSettings struct {
	Model       string `json:"model"`
	MediaType   string `json:"media_type"`
	IPAddress   string `json:"ip_address"`
	USBDevice   string `json:"usb_device"`
	AutoCut     bool   `json:"auto_cut"`
	Rotation    int    `json:"rotation"`
	Compression bool   `json:"compression"`
	HighQuality bool   `json:"high_quality"`
}

type SettingsManager struct {
	db      *sql.DB
	catalog *catalog.Catalog
}

func NewSettingsManager(db *sql.DB, c *catalog.Catalog) *SettingsManager {
	return &SettingsManager{db: db, catalog: c}
}

// CRUD操作
func (sm *SettingsManager) GetSetting(key string) (string, error) {
	d, ok := Lookup(key)
	if !ok {
		return "", fmt.Errorf("setting not found: %s", key)
	}

	var value string
	err := sm.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		// デフォルト値を返す
		return d.Default, nil
	}
	return value, err
}

// Validate checks value for key against the manager's catalog.
func (sm *SettingsManager) Validate(key, value string) error {
	if _, ok := Lookup(key); !ok {
		return labelerr.Config("unknown setting key: %s", key)
	}
	if err := ValidateSetting(key, strings.TrimSpace(value), sm.catalog); err != nil {
		return labelerr.Wrap(labelerr.CodeConfig, err, "invalid value for %s", key)
	}
	return nil
}

func (sm *SettingsManager) SetSetting(key, value string) error {
	if err := sm.Validate(key, value); err != nil {
		return err
	}
	d, _ := Lookup(key)
	value = strings.TrimSpace(value)
	if d.Kind == KindBool {
		b, _ := strconv.ParseBool(value)
		value = strconv.FormatBool(b)
	}

	_, err := sm.db.Exec(`
		INSERT INTO settings (key, value, description)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value, d.Description,
	)
	if err != nil {
		return err
	}

	logger.Info("Setting updated", zap.String("key", key), zap.String("value", value))
	return nil
}

// GetAllSettings returns every setting in display order, with choices resolved
// against the current catalog.
func (sm *SettingsManager) GetAllSettings() ([]Setting, error) {
	rows, err := sm.db.Query(`SELECT key, value, updated_at FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type stored struct {
		value     string
		updatedAt time.Time
	}
	values := map[string]stored{}
	for rows.Next() {
		var key string
		var s stored
		if err := rows.Scan(&key, &s.value, &s.updatedAt); err != nil {
			return nil, err
		}
		values[key] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Setting, 0, len(Descriptors))
	for _, d := range Descriptors {
		s := Setting{
			Key:         d.Key,
			Name:        d.Name,
			Value:       d.Default,
			Default:     d.Default,
			Kind:        d.Kind,
			Description: d.Description,
		}
		// DBにない設定はデフォルト値で補完
		if v, ok := values[d.Key]; ok {
			s.Value = v.value
			s.UpdatedAt = v.updatedAt
		}
		if d.Choices != nil && sm.catalog != nil {
			s.Choices = d.Choices(sm.catalog)
		}
		out = append(out, s)
	}
	return out, nil
}

// Snapshot reads all settings into a PrintSettings value.
func (sm *SettingsManager) Snapshot() (PrintSettings, error) {
	raw := make(map[string]string, len(Descriptors))
	for _, d := range Descriptors {
		v, err := sm.GetSetting(d.Key)
		if err != nil {
			return PrintSettings{}, fmt.Errorf("failed to read setting %s: %w", d.Key, err)
		}
		raw[d.Key] = v
	}
	return Parse(raw)
}

// Parse converts raw key/value pairs into PrintSettings. Missing keys take
// their defaults.
func Parse(raw map[string]string) (PrintSettings, error) {
	get := func(key string) string {
		if v, ok := raw[key]; ok {
			return strings.TrimSpace(v)
		}
		d, _ := Lookup(key)
		return d.Default
	}
	getBool := func(key string) (bool, error) {
		b, err := strconv.ParseBool(get(key))
		if err != nil {
			return false, labelerr.Config("setting %s is not a boolean: %q", key, get(key))
		}
		return b, nil
	}

	ps := PrintSettings{
		Model:     get(KeyModel),
		MediaType: get(KeyMediaType),
		IPAddress: get(KeyIPAddress),
		USBDevice: get(KeyUSBDevice),
	}

	var err error
	if ps.AutoCut, err = getBool(KeyAutoCut); err != nil {
		return PrintSettings{}, err
	}
	if ps.Compression, err = getBool(KeyCompression); err != nil {
		return PrintSettings{}, err
	}
	if ps.HighQuality, err = getBool(KeyHQ); err != nil {
		return PrintSettings{}, err
	}
	rotation, err := strconv.Atoi(get(KeyRotation))
	if err != nil || !validRotation(rotation) {
		return PrintSettings{}, labelerr.Config("setting %s must be one of 0, 90, 180, 270: %q", KeyRotation, get(KeyRotation))
	}
	ps.Rotation = rotation
	return ps, nil
}

// 環境変数からの移行
func (sm *SettingsManager) MigrateFromEnv() error {
	migrated := 0

	for _, d := range Descriptors {
		// 既にDB設定が存在する場合はスキップ
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", d.Key).Scan(&existingKey); err == nil {
			continue
		}

		envValue := os.Getenv(EnvPrefix + d.Key)
		if envValue == "" {
			continue
		}
		if err := sm.SetSetting(d.Key, envValue); err != nil {
			logger.Error("Failed to migrate setting", zap.String("key", d.Key), zap.Error(err))
			return fmt.Errorf("failed to migrate %s: %w", d.Key, err)
		}
		logger.Info("Migrated setting from environment", zap.String("key", d.Key))
		migrated++
	}

	if migrated > 0 {
		logger.Info("Migration completed", zap.Int("migrated_count", migrated))
	}
	return nil
}

// 初期設定のセットアップ
func (sm *SettingsManager) InitializeDefaultSettings() error {
	for _, d := range Descriptors {
		_, err := sm.db.Exec(`INSERT OR IGNORE INTO settings (key, value, description) VALUES (?, ?, ?)`,
			d.Key, d.Default, d.Description)
		if err != nil {
			return fmt.Errorf("failed to initialize setting %s: %w", d.Key, err)
		}
	}
	return nil
}

// PrinterStatus summarises whether the stored settings can drive a print.
type PrinterStatus struct {
	Configured      bool     `json:"configured"`
	Transport       string   `json:"transport"`
	MissingSettings []string `json:"missing_settings"`
	Warnings        []string `json:"warnings"`
}

func (sm *SettingsManager) CheckPrinterStatus() (*PrinterStatus, error) {
	status := &PrinterStatus{
		MissingSettings: []string{},
		Warnings:        []string{},
	}

	ps, err := sm.Snapshot()
	if err != nil {
		return nil, err
	}

	switch {
	case ps.IPAddress != "":
		status.Transport = "network"
		if ps.USBDevice != "" {
			status.Warnings = append(status.Warnings, "Both IP_ADDRESS and USB_DEVICE are set - the network printer will be used")
		}
	case ps.USBDevice != "":
		status.Transport = "usb"
	default:
		status.MissingSettings = append(status.MissingSettings, KeyIPAddress, KeyUSBDevice)
	}

	if sm.catalog != nil {
		device, ok := sm.catalog.Device(ps.Model)
		if !ok {
			status.MissingSettings = append(status.MissingSettings, KeyModel)
		} else if ps.MediaType != catalog.Automatic {
			if _, ok := device.Label(ps.MediaType); !ok {
				status.Warnings = append(status.Warnings,
					fmt.Sprintf("Media type %s is not listed for %s", ps.MediaType, ps.Model))
			}
		}
	}

	status.Configured = len(status.MissingSettings) == 0
	return status, nil
}

var (
	usbDevicePattern = regexp.MustCompile(`^(0x)?[0-9A-Fa-f]{4}:(0x)?[0-9A-Fa-f]{4}(/[^\s/]+)?$`)
	hostnamePattern  = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9.-]*[A-Za-z0-9])?$`)
)

// バリデーション
func ValidateSetting(key, value string, c *catalog.Catalog) error {
	d, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("unknown setting key: %s", key)
	}

	switch d.Kind {
	case KindBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("must be 'true' or 'false'")
		}
		return nil
	case KindChoice:
		if d.Choices == nil || c == nil {
			return nil
		}
		for _, choice := range d.Choices(c) {
			if choice.Value == value {
				return nil
			}
		}
		return fmt.Errorf("%q is not an available choice", value)
	}

	switch key {
	case KeyIPAddress:
		if value == "" {
			return nil
		}
		host := value
		if h, port, err := net.SplitHostPort(value); err == nil {
			if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("invalid port in %q", value)
			}
			host = h
		}
		if net.ParseIP(host) == nil && !hostnamePattern.MatchString(host) {
			return fmt.Errorf("invalid address format (expected IP address or host name)")
		}
	case KeyUSBDevice:
		if value != "" && !usbDevicePattern.MatchString(value) {
			return fmt.Errorf("invalid USB device format (expected VID:PID/SERIAL)")
		}
	}
	return nil
}

func validRotation(deg int) bool {
	for _, r := range catalog.Rotations {
		if r == deg {
			return true
		}
	}
	return false
}
