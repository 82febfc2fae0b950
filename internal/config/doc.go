// Package config defines the controller settings used by the trigsync
// binaries and provides helpers to load, validate and save them in YAML
// format.
//
// The Config type holds the instrument resource address plus the timing
// defaults (lead, period, count, guard, debounce, log hygiene) that the
// controller applies when a call does not override them.
package config
