// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package toml_test

import (
	"testing"
	"time"

	"github.com/featurebasedb/empstats/toml"
)

func TestDuration(t *testing.T) {
	var d toml.Duration
	if err := d.Set("1m30s"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Fatalf("expected 90s, got %v", d.Std())
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(text) != "1m30s" {
		t.Fatalf("unexpected text %q", text)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatalf("expected error parsing invalid duration")
	}
	if d.Type() != "duration" {
		t.Fatalf("unexpected flag type %q", d.Type())
	}
}
