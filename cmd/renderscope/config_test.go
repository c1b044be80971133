// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultCLIConfig(t *testing.T) {
	cfg := DefaultCLIConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Analysis.MaxHotspots != 100 || cfg.Analysis.CompareTopN != 10 {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
	if cfg.Store.Path == "" {
		t.Error("Store.Path must have a default")
	}
}

func TestConfig_YAMLOverrides(t *testing.T) {
	doc := `
server:
  port: 9191
  debug: true
logging:
  level: debug
  dir: /var/log/renderscope
store:
  path: /data/baselines
analysis:
  max_hotspots: 50
  compare_top_n: 5
  max_export_bytes: 1048576
`
	cfg := DefaultCLIConfig()
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cfg.Server.Port != 9191 || !cfg.Server.Debug {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Dir != "/var/log/renderscope" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Store.Path != "/data/baselines" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Analysis.MaxExportBytes != 1048576 {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
}

func TestConfig_PartialYAMLKeepsDefaults(t *testing.T) {
	cfg := DefaultCLIConfig()
	if err := yaml.Unmarshal([]byte("server:\n  port: 3000\n"), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, defaults must survive partial config", cfg.Logging.Level)
	}
}
