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

// Config is the YAML configuration for the renderscope CLI. All
// fields have working defaults; a config file is optional.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

type ServerConfig struct {
	Port  int  `yaml:"port"`
	Debug bool `yaml:"debug"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type StoreConfig struct {
	// Path is the BadgerDB directory for saved baselines.
	Path string `yaml:"path"`
}

type AnalysisConfig struct {
	MaxHotspots    int   `yaml:"max_hotspots"`
	CompareTopN    int   `yaml:"compare_top_n"`
	MaxExportBytes int64 `yaml:"max_export_bytes"`
}

// DefaultCLIConfig returns the configuration used when no config file
// is supplied.
func DefaultCLIConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Path: "~/.renderscope/baselines",
		},
		Analysis: AnalysisConfig{
			MaxHotspots:    100,
			CompareTopN:    10,
			MaxExportBytes: 256 * 1024 * 1024,
		},
	}
}
