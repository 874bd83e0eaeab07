// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

// Command gen-schema writes the API request JSON Schema files for client
// tooling and documentation.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moodlog/moodlog/internal/httpapi"
)

func main() {
	if err := os.MkdirAll("schemas", 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	for name, model := range httpapi.RequestModels() {
		schema, err := httpapi.GenerateSchema(name, model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema %s: %v\n", name, err)
			os.Exit(1)
		}

		outPath := filepath.Join("schemas", name+".schema.json")
		if err := os.WriteFile(outPath, schema, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
}
