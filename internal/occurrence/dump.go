// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package occurrence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleutian-oss/bcminer/internal/bcerr"
)

// Dump writes counts as a JSON object to outputDir/occurrences/<bcName>.json,
// creating the occurrences directory if needed.
func Dump(counts Count, outputDir, bcName string) error {
	dir := filepath.Join(outputDir, "occurrences")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w: %v", dir, bcerr.IOFailure, err)
	}
	data, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling occurrence map: %w: %v", bcerr.IOFailure, err)
	}
	path := filepath.Join(dir, bcName+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w: %v", path, bcerr.IOFailure, err)
	}
	return nil
}
