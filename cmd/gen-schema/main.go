// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Command gen-schema writes the JSON Schema of every auth request body.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/web"
)

func main() {
	dir := "schemas"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	written, err := writeSchemas(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schemas: %v\n", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
}

// writeSchemas writes <name>.schema.json files into dir and returns their
// paths in name order.
func writeSchemas(dir string) ([]string, error) {
	schemas, err := web.GenerateSchemas()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, oops.Code("SCHEMA_WRITE_FAILED").With("path", dir).Wrap(err)
	}

	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	slices.Sort(names)

	written := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name+".schema.json")
		data := schemas[name]
		if !strings.HasSuffix(string(data), "\n") {
			data = append(data, '\n')
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, oops.Code("SCHEMA_WRITE_FAILED").With("path", path).Wrap(err)
		}
		written = append(written, path)
	}
	return written, nil
}
