// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Sheet   SheetConfig
	Script  ScriptConfig
	Catalog CatalogConfig
	Export  ExportConfig
	Server  ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// SheetConfig holds read-path configuration for the spreadsheet data source.
type SheetConfig struct {
	// DocumentID identifies the backing spreadsheet document.
	DocumentID string
	// BaseURL is the host serving the tabular query interface (default: Google Docs).
	BaseURL string
	// FetchTimeout bounds a single sheet fetch (default: 30s).
	FetchTimeout time.Duration
}

// ScriptConfig holds write-path configuration for the remote script endpoints.
type ScriptConfig struct {
	// ReportURL receives defect report creation payloads.
	ReportURL string
	// ProcessURL receives processing updates, row edits, and pending-list queries.
	ProcessURL string
	// Timeout bounds a single script call (default: 45s).
	Timeout time.Duration
}

// CatalogConfig holds the category catalog configuration.
type CatalogConfig struct {
	// Path to the catalog JSON file. Empty means built-in defaults only.
	Path string
	// Watch enables hot reload of the catalog file (default: true when Path set).
	Watch bool
}

// ExportConfig holds spreadsheet export configuration.
type ExportConfig struct {
	// ImageBoxPx is the square size of embedded images in pixels (default: 100).
	ImageBoxPx int
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 120s, exports stream slowly)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	documentID := flag.String("sheet-id", "", "Spreadsheet document identifier")
	sheetBaseURL := flag.String("sheet-base-url", "", "Base URL of the tabular query interface")
	reportURL := flag.String("report-url", "", "Script endpoint for defect report creation")
	processURL := flag.String("process-url", "", "Script endpoint for processing updates and row edits")
	catalogPath := flag.String("catalog-path", "", "Path to the category catalog JSON file")
	catalogWatch := flag.String("catalog-watch", "", "Hot reload the catalog file (default: true)")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 120s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	fetchTimeout := flag.String("fetch-timeout", "", "Sheet fetch timeout (default: 30s)")
	scriptTimeout := flag.String("script-timeout", "", "Script call timeout (default: 45s)")
	imageBoxPx := flag.String("export-image-px", "", "Embedded export image size in pixels (default: 100)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Sheet: SheetConfig{
			DocumentID: getConfigValue(*documentID, "SHEET_ID", ""),
			BaseURL:    getConfigValue(*sheetBaseURL, "SHEET_BASE_URL", "https://docs.google.com"),
		},
		Script: ScriptConfig{
			ReportURL:  getConfigValue(*reportURL, "REPORT_SCRIPT_URL", ""),
			ProcessURL: getConfigValue(*processURL, "PROCESS_SCRIPT_URL", ""),
		},
		Catalog: CatalogConfig{
			Path:  getConfigValue(*catalogPath, "CATALOG_PATH", ""),
			Watch: getBoolConfigValue(*catalogWatch, "CATALOG_WATCH", true),
		},
		Export: ExportConfig{
			ImageBoxPx: getIntConfigValue(*imageBoxPx, "EXPORT_IMAGE_PX", 100),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
	}

	var err error
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "120s")
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	cfg.Sheet.FetchTimeout, err = parseDurationValue(*fetchTimeout, "SHEET_FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid fetch timeout: %w", err)
	}
	cfg.Script.Timeout, err = parseDurationValue(*scriptTimeout, "SCRIPT_TIMEOUT", "45s")
	if err != nil {
		return nil, fmt.Errorf("invalid script timeout: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Sheet.DocumentID == "" {
		return errors.New("SHEET_ID is required")
	}
	if c.Script.ReportURL == "" {
		return errors.New("REPORT_SCRIPT_URL is required")
	}
	if c.Script.ProcessURL == "" {
		return errors.New("PROCESS_SCRIPT_URL is required")
	}
	if c.Export.ImageBoxPx <= 0 {
		return fmt.Errorf("invalid export image size: %d", c.Export.ImageBoxPx)
	}

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
