// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command renderscope analyzes render profiling exports.
//
// Usage:
//
//	renderscope analyze profile.json
//	renderscope analyze profile.json --format markdown
//	renderscope compare before.json after.json
//	renderscope baseline save main-branch profile.json
//	renderscope baseline list
//	renderscope serve --port 8080 --watch ./exports
package main

import (
	"log"
	"os"

	"github.com/AleutianAI/renderscope/pkg/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var config Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		config = DefaultCLIConfig()
		if configPath != "" {
			yamlFile, err := os.ReadFile(configPath)
			if err != nil {
				log.Fatalf("Error reading %s: %v", configPath, err)
			}
			if err := yaml.Unmarshal(yamlFile, &config); err != nil {
				log.Fatalf("Error parsing %s: %v", configPath, err)
			}
		}

		logger := logging.New(logging.Config{
			Level:   logging.ParseLevel(config.Logging.Level),
			LogDir:  config.Logging.Dir,
			Service: "renderscope",
		})
		logger.SetAsDefault()
	}
}
