package unit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestEventSchemaArtifactsAreValid(t *testing.T) {
	root, err := findRepoRoot()
	if err != nil {
		t.Fatalf("resolve repo root: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(root, "contracts/events/v1/*.schema.json"))
	if err != nil {
		t.Fatalf("glob event schemas: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no event schema artifacts found under contracts/events/v1")
	}

	seen := make(map[string]bool, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		var schema struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &schema); err != nil {
			t.Fatalf("invalid json schema %s: %v", path, err)
		}
		if schema.Type != "object" {
			t.Fatalf("expected object schema in %s, got %q", path, schema.Type)
		}
		name := filepath.Base(path)
		seen[name[:len(name)-len(".schema.json")]] = true
	}

	// Every topic the services publish must ship a payload schema.
	for _, topic := range []string{
		"registry.bound",
		"registry.rebound",
		"policy.created",
		"payment.received",
		"distribution.completed",
		"goal.completed",
		"goal.cancelled",
		"fees.overdue",
	} {
		if !seen[topic] {
			t.Fatalf("missing schema for published topic %s", topic)
		}
	}
	if !seen["envelope"] {
		t.Fatalf("missing envelope schema")
	}
}

func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	current := wd
	for {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("go.mod not found from %s", wd)
		}
		current = parent
	}
}
