// Package config handles loading and parsing the layerscope configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/layerscope/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/layerscope/config.toml
//   - Backend: 127.0.0.1:7433
//   - Request timeout: none
//   - Log file: ~/.local/state/layerscope/layerscope.log (JSON, info)
//   - Cache budget: 2GiB
//   - Image list refresh: 2s
//   - Metrics endpoint: disabled
//   - Layer paths: /tmp/layers/current_layer/fs under /tmp/layers/current_layer
//
// # TOML Format
//
//	backend_addr = "127.0.0.1:7433"
//	request_timeout = "0s"
//	log_path = "~/.local/state/layerscope/layerscope.log"
//	log_level = "info"       # debug, info, warn, error
//	log_format = "json"      # json, console
//	cache_budget = "2GiB"    # any go-humanize size
//	poll_interval = "2s"
//	metrics_addr = ":9102"
//
//	[paths]
//	namespace = "/tmp/layers/current_layer/fs"
//	layer_root = "/tmp/layers/current_layer"
//	reserved = ["layer_info.txt", "command.txt", "fs.tar"]
//
// Every key is optional. Durations use time.ParseDuration syntax. Tilde
// expansion is applied to the config path and log_path.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML syntax errors and invalid durations, formats or sizes
//
// All errors are wrapped with context ("open config", "parse config").
package config
