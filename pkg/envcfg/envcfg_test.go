// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package envcfg

import (
	"errors"
	"testing"
	"time"
)

func TestRequire_Present(t *testing.T) {
	t.Setenv("DINGEN_TEST_VAR", "hello")
	v, err := Require("DINGEN_TEST_VAR")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if v != "hello" {
		t.Errorf("Expected 'hello', got %q", v)
	}
}

func TestRequire_Missing(t *testing.T) {
	t.Setenv("DINGEN_TEST_VAR", "")
	_, err := Require("DINGEN_TEST_VAR")
	if err == nil {
		t.Fatal("Expected error for missing variable")
	}
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("Expected ErrMissingConfig, got: %v", err)
	}
}

func TestGetenv_Fallback(t *testing.T) {
	t.Setenv("DINGEN_TEST_VAR", "")
	if got := Getenv("DINGEN_TEST_VAR", "default"); got != "default" {
		t.Errorf("Expected fallback, got %q", got)
	}
	t.Setenv("DINGEN_TEST_VAR", "set")
	if got := Getenv("DINGEN_TEST_VAR", "default"); got != "set" {
		t.Errorf("Expected 'set', got %q", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("DINGEN_TEST_DUR", "30s")
	if got := Duration("DINGEN_TEST_DUR", time.Minute); got != 30*time.Second {
		t.Errorf("Expected 30s, got %v", got)
	}
	t.Setenv("DINGEN_TEST_DUR", "not-a-duration")
	if got := Duration("DINGEN_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("Expected fallback on parse failure, got %v", got)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("DINGEN_TEST_INT", "14")
	if got := Int("DINGEN_TEST_INT", 7); got != 14 {
		t.Errorf("Expected 14, got %d", got)
	}
	t.Setenv("DINGEN_TEST_INT", "")
	if got := Int("DINGEN_TEST_INT", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %d", got)
	}
}
