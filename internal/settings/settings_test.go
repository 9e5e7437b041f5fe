package settings

import (
	"path/filepath"
	"testing"

	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/localdb"
)

func newTestManager(t *testing.T) *SettingsManager {
	t.Helper()

	if localdb.DBClient != nil {
		_ = localdb.DBClient.Close()
		localdb.DBClient = nil
	}

	db, err := localdb.SetupDB(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("SetupDB failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		localdb.DBClient = nil
	})

	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default failed: %v", err)
	}
	return NewSettingsManager(db, c)
}

func TestSnapshotDefaults(t *testing.T) {
	sm := newTestManager(t)

	got, err := sm.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	want := PrintSettings{
		Model:       "PT-P750W",
		MediaType:   "12",
		AutoCut:     true,
		Rotation:    0,
		Compression: false,
		HighQuality: true,
	}
	if got != want {
		t.Fatalf("defaults: got=%+v want=%+v", got, want)
	}
}

func TestSetSettingValidatesAndNormalizes(t *testing.T) {
	sm := newTestManager(t)

	if err := sm.SetSetting(KeyAutoCut, "False"); err != nil {
		t.Fatalf("SetSetting AUTO_CUT failed: %v", err)
	}
	if v, _ := sm.GetSetting(KeyAutoCut); v != "false" {
		t.Fatalf("AUTO_CUT should be normalized: got=%q want=%q", v, "false")
	}

	valid := map[string]string{
		KeyModel:     "QL-820NWB",
		KeyMediaType: "automatic",
		KeyRotation:  "270",
		KeyIPAddress: "192.168.1.50",
		KeyUSBDevice: "04f9:2042/000A1Z401370",
	}
	for key, value := range valid {
		if err := sm.SetSetting(key, value); err != nil {
			t.Fatalf("SetSetting(%s, %q) failed: %v", key, value, err)
		}
	}

	invalid := map[string]string{
		KeyModel:     "QL-9999",
		KeyMediaType: "not-a-label",
		KeyRotation:  "45",
		KeyHQ:        "maybe",
		KeyIPAddress: "tcp://192.168.1.50",
		KeyUSBDevice: "printer-on-usb",
		"UNKNOWN":    "x",
	}
	for key, value := range invalid {
		if err := sm.SetSetting(key, value); !labelerr.Is(err, labelerr.CodeConfig) {
			t.Fatalf("SetSetting(%s, %q): got=%v want CONFIG_ERROR", key, value, err)
		}
	}

	got, err := sm.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if got.Model != "QL-820NWB" || got.Rotation != 270 || got.AutoCut {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestValidateSettingAddresses(t *testing.T) {
	cases := []struct {
		key, value string
		ok         bool
	}{
		{KeyIPAddress, "", true},
		{KeyIPAddress, "10.0.0.7", true},
		{KeyIPAddress, "10.0.0.7:9100", true},
		{KeyIPAddress, "label-printer.local", true},
		{KeyIPAddress, "10.0.0.7:99999", false},
		{KeyIPAddress, "two words", false},
		{KeyUSBDevice, "0x04f9:0x2042", true},
		{KeyUSBDevice, "04f9:2042/000A1Z401370", true},
		{KeyUSBDevice, "04f9-2042", false},
	}
	for _, tc := range cases {
		err := ValidateSetting(tc.key, tc.value, nil)
		if (err == nil) != tc.ok {
			t.Fatalf("ValidateSetting(%s, %q): err=%v want ok=%v", tc.key, tc.value, err, tc.ok)
		}
	}
}

func TestParseRejectsBrokenValues(t *testing.T) {
	_, err := Parse(map[string]string{KeyRotation: "45"})
	if !labelerr.Is(err, labelerr.CodeConfig) {
		t.Fatalf("rotation 45: got=%v want CONFIG_ERROR", err)
	}
	_, err = Parse(map[string]string{KeyCompression: "sometimes"})
	if !labelerr.Is(err, labelerr.CodeConfig) {
		t.Fatalf("compression: got=%v want CONFIG_ERROR", err)
	}
}

func TestGetAllSettingsResolvesChoices(t *testing.T) {
	sm := newTestManager(t)
	if err := sm.InitializeDefaultSettings(); err != nil {
		t.Fatalf("InitializeDefaultSettings failed: %v", err)
	}
	if err := sm.SetSetting(KeyIPAddress, "192.168.1.50"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	all, err := sm.GetAllSettings()
	if err != nil {
		t.Fatalf("GetAllSettings failed: %v", err)
	}
	if len(all) != len(Descriptors) {
		t.Fatalf("len: got=%d want=%d", len(all), len(Descriptors))
	}
	if all[0].Key != KeyModel || len(all[0].Choices) == 0 {
		t.Fatalf("MODEL should come first with choices: %+v", all[0])
	}
	if all[1].Choices[0].Value != catalog.Automatic {
		t.Fatalf("TYPE choices should start with automatic: %v", all[1].Choices[0])
	}
	if all[2].Value != "192.168.1.50" {
		t.Fatalf("IP_ADDRESS: got=%q", all[2].Value)
	}
	if all[2].Choices != nil {
		t.Fatalf("IP_ADDRESS should have no choices")
	}
}

func TestMigrateFromEnv(t *testing.T) {
	sm := newTestManager(t)
	t.Setenv(EnvPrefix+KeyUSBDevice, "04f9:2042")
	t.Setenv(EnvPrefix+KeyHQ, "0")

	if err := sm.MigrateFromEnv(); err != nil {
		t.Fatalf("MigrateFromEnv failed: %v", err)
	}
	if v, _ := sm.GetSetting(KeyUSBDevice); v != "04f9:2042" {
		t.Fatalf("USB_DEVICE: got=%q", v)
	}
	if v, _ := sm.GetSetting(KeyHQ); v != "false" {
		t.Fatalf("HQ: got=%q want=false", v)
	}

	// existing values are not overwritten
	t.Setenv(EnvPrefix+KeyUSBDevice, "1111:2222")
	if err := sm.MigrateFromEnv(); err != nil {
		t.Fatalf("second MigrateFromEnv failed: %v", err)
	}
	if v, _ := sm.GetSetting(KeyUSBDevice); v != "04f9:2042" {
		t.Fatalf("USB_DEVICE overwritten: got=%q", v)
	}
}

func TestCheckPrinterStatus(t *testing.T) {
	sm := newTestManager(t)

	status, err := sm.CheckPrinterStatus()
	if err != nil {
		t.Fatalf("CheckPrinterStatus failed: %v", err)
	}
	if status.Configured {
		t.Fatalf("no transport configured, status should not be configured")
	}

	_ = sm.SetSetting(KeyIPAddress, "192.168.1.50")
	_ = sm.SetSetting(KeyUSBDevice, "04f9:2042")
	status, err = sm.CheckPrinterStatus()
	if err != nil {
		t.Fatalf("CheckPrinterStatus failed: %v", err)
	}
	if !status.Configured || status.Transport != "network" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if len(status.Warnings) != 1 {
		t.Fatalf("expected precedence warning: %v", status.Warnings)
	}
}
