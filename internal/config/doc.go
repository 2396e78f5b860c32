// Package config provides configuration loading, merging, and path management for commander.
//
// # Configuration Loading
//
// Load starts from Default and decodes every source found over it, in order:
//
//  1. Global config (~/.config/commander/commander.json[c])
//  2. Project config (commander.json[c] and .commander/commander.json[c])
//  3. COMMANDER_CONFIG file
//  4. COMMANDER_CONFIG_CONTENT inline JSON
//  5. Environment variables
//
// A .env file in the project directory is read before the environment
// overrides are applied. Variables that are already set are kept.
//
// Keys a source does not mention keep their previous value, so a project file
// can set "track_output": false without repeating the ignored command list.
//
// # Supported Formats
//
//   - commander.json - Standard JSON configuration
//   - commander.jsonc - JSON with comments, processed using tidwall/jsonc
//
// # Variable Interpolation
//
// String values may reference {env:VAR_NAME} and {file:path}. Relative file
// paths resolve against the directory of the config file that references them.
//
// # Environment Overrides
//
//   - COMMANDER_ENABLED, COMMANDER_URL, COMMANDER_TABLE
//   - COMMANDER_TRACK_OUTPUT, COMMANDER_TRACK_ARGUMENTS, COMMANDER_TRACK_OPTIONS
//   - COMMANDER_TRACK_EXECUTION_TIME, COMMANDER_TRACK_USER
//   - COMMANDER_MAX_OUTPUT_LENGTH, COMMANDER_RETENTION_DAYS
//   - COMMANDER_NOTIFY_ON_FAILURE, COMMANDER_WEBHOOK_URL
//   - COMMANDER_DATABASE_DRIVER, COMMANDER_DATABASE_DSN
//   - COMMANDER_PORT, COMMANDER_LOG_LEVEL, APP_ENV
package config
