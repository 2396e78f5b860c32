package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/LaravelPlus/commander/pkg/types"
)

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Default returns the configuration used when no file overrides a key.
func Default() *types.Config {
	return &types.Config{
		Enabled:     true,
		URL:         "admin/commander",
		Environment: "production",
		Table:       "command_executions",
		Database: types.DatabaseConfig{
			Driver:        "sqlite",
			DSN:           GetPaths().DatabasePath(),
			MaxOpenConns:  10,
			MaxIdleConns:  5,
			SlowThreshold: 200,
		},
		Server: types.ServerConfig{
			Port:           8080,
			Hostname:       "127.0.0.1",
			RequestTimeout: 600,
			UserHeader:     "X-User-ID",
		},
		Log: types.LogConfig{
			Level: "info",
		},
		TrackOutput:        true,
		TrackArguments:     true,
		TrackOptions:       true,
		TrackExecutionTime: true,
		TrackUser:          true,
		MaxOutputLength:    10000,
		RetentionDays:      90,
		TrackedCommands:    []string{},
		IgnoredCommands: []string{
			"schedule:run",
			"queue:work",
			"queue:listen",
			"migrate:*",
			"db:seed",
			"config:cache",
			"route:cache",
			"view:cache",
		},
		ExcludedCommands:     []string{},
		DisabledCommands:     []string{},
		NotifyOnFailure:      false,
		NotificationChannels: []string{"mail"},
		Webhook: types.WebhookConfig{
			Timeout:    10,
			MaxRetries: 3,
		},
		Commands:    map[string]types.CommandConfig{},
		CommandDirs: []string{ProjectCommandsDir("")},
	}
}

// Load loads configuration from multiple sources (priority order):
// 1. Defaults
// 2. Global config (~/.config/commander/)
// 3. Project config (commander.json and .commander/)
// 4. COMMANDER_CONFIG file
// 5. COMMANDER_CONFIG_CONTENT inline JSON
// 6. Environment variables (a project .env file is read first)
func Load(directory string) (*types.Config, error) {
	config := Default()

	if directory != "" {
		// Never overrides variables that are already set.
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) error {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if loaded[absPath] {
			return nil
		}
		err = loadConfigFile(path, config, baseDir)
		if err == nil {
			loaded[absPath] = true
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}

	for _, f := range configFiles(GetPaths(), directory) {
		if err := loadOnce(f.path, f.baseDir); err != nil {
			return nil, err
		}
	}

	if configContent := os.Getenv("COMMANDER_CONFIG_CONTENT"); configContent != "" {
		if err := mergeConfig(config, jsonc.ToJSON([]byte(configContent))); err != nil {
			return nil, fmt.Errorf("COMMANDER_CONFIG_CONTENT: %w", err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	// Relative command directories resolve against the project directory.
	if directory != "" {
		for i, dir := range config.CommandDirs {
			if !filepath.IsAbs(dir) {
				config.CommandDirs[i] = filepath.Join(directory, dir)
			}
		}
	}

	return config, Validate(config)
}

// Validate checks invariants the rest of the program relies on.
func Validate(config *types.Config) error {
	if config.MaxOutputLength < 0 {
		return fmt.Errorf("max_output_length must not be negative")
	}
	if config.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative")
	}
	if config.Table == "" {
		return fmt.Errorf("table must not be empty")
	}
	switch config.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}
	for name, cmd := range config.Commands {
		if cmd.Run == "" && len(cmd.Argv) == 0 {
			return fmt.Errorf("command %q: run or argv is required", name)
		}
	}
	return nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	data = interpolate(data, baseDir)

	return mergeConfig(config, data)
}

// mergeConfig decodes data over target. Keys absent from data keep their
// current value, maps are merged key by key and lists are replaced.
func mergeConfig(target *types.Config, data []byte) error {
	return json.Unmarshal(data, target)
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for JSON string
		escaped, _ := json.Marshal(strings.TrimRight(string(content), "\n"))
		return string(escaped[1 : len(escaped)-1])
	})

	return []byte(str)
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) error {
	bools := map[string]*bool{
		"COMMANDER_ENABLED":              &config.Enabled,
		"COMMANDER_TRACK_OUTPUT":         &config.TrackOutput,
		"COMMANDER_TRACK_ARGUMENTS":      &config.TrackArguments,
		"COMMANDER_TRACK_OPTIONS":        &config.TrackOptions,
		"COMMANDER_TRACK_EXECUTION_TIME": &config.TrackExecutionTime,
		"COMMANDER_TRACK_USER":           &config.TrackUser,
		"COMMANDER_NOTIFY_ON_FAILURE":    &config.NotifyOnFailure,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"COMMANDER_MAX_OUTPUT_LENGTH": &config.MaxOutputLength,
		"COMMANDER_RETENTION_DAYS":    &config.RetentionDays,
		"COMMANDER_PORT":              &config.Server.Port,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	strs := map[string]*string{
		"COMMANDER_URL":             &config.URL,
		"COMMANDER_TABLE":           &config.Table,
		"APP_ENV":                   &config.Environment,
		"COMMANDER_DATABASE_DRIVER": &config.Database.Driver,
		"COMMANDER_DATABASE_DSN":    &config.Database.DSN,
		"COMMANDER_LOG_LEVEL":       &config.Log.Level,
		"COMMANDER_WEBHOOK_URL":     &config.Webhook.URL,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	return nil
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// IsProduction reports whether the configured environment is production.
func IsProduction(config *types.Config) bool {
	return strings.EqualFold(config.Environment, "production")
}

// IsDevelopment reports whether development-only features are available.
func IsDevelopment(config *types.Config) bool {
	switch strings.ToLower(config.Environment) {
	case "local", "development", "dev", "testing":
		return true
	}
	return false
}
