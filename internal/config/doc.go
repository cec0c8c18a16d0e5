// Package config loads the crewsync configuration.
//
// # Resolution
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/crewsync/config.toml
//  3. A missing file is not an error; defaults are used
//  4. CREWSYNC_* environment variables override file values, after an
//     optional .env in the working directory has been loaded
//
// # TOML Format
//
//	endpoint          = "https://crew.example.com/api/roster"
//	user_id           = "4711"
//	cache_path        = "~/.local/share/crewsync/schedule.json"
//	log_dir           = "~/.local/share/crewsync/logs"
//	tracked_day       = "Wed 08 Oct"
//	poll_interval     = "5m"
//	background_budget = "25s"
//	metrics_addr      = "127.0.0.1:9464"
//	log_level         = "info"
//
// Every field is optional. Values are trimmed and paths are tilde-expanded.
// poll_interval is clamped to at least ten seconds. Load does not require
// endpoint or user_id; call Validate before syncing.
package config
