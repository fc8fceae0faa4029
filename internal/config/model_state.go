package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// modelState is the small persisted record selecting the startup model.
// The file is written by an external CLI/script; the core only reads it.
type modelState struct {
	Model string `json:"model"`
}

// LoadModelState reads the `{"model": "<alias>"}` record at path. A missing
// file is not an error; it returns the empty alias so the caller can fall
// back to its configured default.
func LoadModelState(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var st modelState
	if err := json.Unmarshal(b, &st); err != nil {
		return "", fmt.Errorf("model state %s: %w", path, err)
	}
	return st.Model, nil
}
