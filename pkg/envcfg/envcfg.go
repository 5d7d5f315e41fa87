// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package envcfg provides environment-based configuration helpers shared
// by the planner and toolserver services.
//
// Configuration comes from environment variables. In local development a
// .env file next to the binary is loaded first, matching how the services
// run inside the compose stack (where variables are injected and no .env
// exists).
package envcfg

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingConfig is wrapped by Require for any absent variable.
// Configuration failures are fatal before any remote call is made.
var ErrMissingConfig = fmt.Errorf("required configuration missing")

// IsLocal reports whether the process is running in a local/dev
// environment: either LOCAL_DEV=1 is set or a .env file is present.
func IsLocal() bool {
	if os.Getenv("LOCAL_DEV") == "1" {
		return true
	}
	_, err := os.Stat(".env")
	return err == nil
}

// LoadDotenv loads a .env file when running locally. Missing files are
// not an error; deployed environments inject variables directly.
func LoadDotenv() {
	if !IsLocal() {
		return
	}
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
		return
	}
	slog.Info("Loaded environment from .env file")
}

// Require returns the value of the named environment variable, or an
// error wrapping ErrMissingConfig when unset or empty.
func Require(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingConfig, name)
	}
	return v, nil
}

// Getenv returns the named variable or the fallback, logging a warning
// when the fallback is used so misconfiguration is visible at startup.
func Getenv(name, fallback string) string {
	v := os.Getenv(name)
	if v == "" {
		slog.Warn(name+" not set, using default", "default", fallback)
		return fallback
	}
	return v
}

// Duration parses the named variable as a time.Duration, falling back
// on parse failure or absence.
func Duration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, using default", "var", name, "value", v, "default", fallback.String())
		return fallback
	}
	return d
}

// Int parses the named variable as an integer, falling back on parse
// failure or absence.
func Int(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer, using default", "var", name, "value", v, "default", fallback)
		return fallback
	}
	return n
}
