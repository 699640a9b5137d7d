package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Sheet:  SheetConfig{DocumentID: "doc-123", BaseURL: "https://docs.google.com"},
		Script: ScriptConfig{
			ReportURL:  "https://script.example.com/report",
			ProcessURL: "https://script.example.com/process",
		},
		Export: ExportConfig{ImageBoxPx: 100},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_RequiredUpstreams(t *testing.T) {
	missingSheet := validConfig()
	missingSheet.Sheet.DocumentID = ""
	assert.Error(t, missingSheet.Validate())

	missingReport := validConfig()
	missingReport.Script.ReportURL = ""
	assert.Error(t, missingReport.Validate())

	missingProcess := validConfig()
	missingProcess.Script.ProcessURL = ""
	assert.Error(t, missingProcess.Validate())
}

func TestValidate_ExportImageSize(t *testing.T) {
	cfg := validConfig()
	cfg.Export.ImageBoxPx = 0
	assert.Error(t, cfg.Validate())
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_CONFIG_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "TEST_CONFIG_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "TEST_CONFIG_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "TEST_CONFIG_MISSING", "default"))
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("true", "TEST_BOOL_MISSING", false))
	assert.True(t, getBoolConfigValue("1", "TEST_BOOL_MISSING", false))
	assert.True(t, getBoolConfigValue("YES", "TEST_BOOL_MISSING", false))
	assert.False(t, getBoolConfigValue("no", "TEST_BOOL_MISSING", true))
	assert.True(t, getBoolConfigValue("", "TEST_BOOL_MISSING", true))
}

func TestGetIntConfigValue(t *testing.T) {
	assert.Equal(t, 42, getIntConfigValue("42", "TEST_INT_MISSING", 7))
	assert.Equal(t, 7, getIntConfigValue("", "TEST_INT_MISSING", 7))
	assert.Equal(t, 7, getIntConfigValue("not-a-number", "TEST_INT_MISSING", 7))
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("45s", "TEST_DUR_MISSING", "30s")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)

	d, err = parseDurationValue("", "TEST_DUR_MISSING", "30s")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	_, err = parseDurationValue("nonsense", "TEST_DUR_MISSING", "30s")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nTEST_ENVFILE_A=hello\nTEST_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("TEST_ENVFILE_A", "")
	t.Setenv("TEST_ENVFILE_B", "")
	os.Unsetenv("TEST_ENVFILE_A")
	os.Unsetenv("TEST_ENVFILE_B")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("TEST_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("TEST_ENVFILE_B"))
}

func TestLoadEnvFile_EnvVarWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_ENVFILE_C=from-file\n"), 0o644))

	t.Setenv("TEST_ENVFILE_C", "from-env")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-env", os.Getenv("TEST_ENVFILE_C"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("no equals sign here\n"), 0o644))

	assert.Error(t, loadEnvFile(path))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
