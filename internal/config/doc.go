// Package config resolves the testbench configuration tree.
//
// A tree is built from layers, later layers winning on overlapping keys:
//
//  1. Built-in defaults (see Default).
//  2. The base file: the first of config.yaml, config.yml, config.json in
//     the config directory that exists and parses.
//  3. The environment file: config.<env>.yaml, .yml or .json, probed the
//     same way. The environment tag comes from TEST_ENV and defaults to
//     "test".
//  4. Environment variable overrides from a fixed table (DB_HOST,
//     API_TIMEOUT, BROWSER_HEADLESS, ...). See EnvOverrides.
//
// Before any of this, a dotenv file is loaded into the process environment
// if it exists. Variables that are already set are never overwritten.
//
// Basic usage:
//
//	m := config.NewManager(config.WithConfigDir("config"))
//	if _, err := m.Load(ctx); err != nil {
//	    // err is a ValidationErrors listing every violated invariant
//	    return err
//	}
//	api := m.API()
//
// Only the known keys of a section are merged from files; unknown keys and
// unknown sections are ignored. The custom section is merged as a key union
// and accepts any value.
//
// Missing parsers, unreadable files and parse errors are logged and the
// file is skipped. Only validation failure is returned from Load.
package config
