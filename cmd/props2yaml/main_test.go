package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunConvertsFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "app.properties")
	output := filepath.Join(dir, "app.yaml")

	props := "# comment\nserver.port=8080\nfeatures[0]=logging\nfeatures[1]=monitoring\n"
	if err := os.WriteFile(input, []byte(props), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	if err := run(input, output); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "server:\n    port: \"8080\"\nfeatures:\n    - logging\n    - monitoring\n"
	if string(data) != want {
		t.Fatalf("want %q, got %q", want, data)
	}
}

func TestRunMissingInput(t *testing.T) {
	if err := run(filepath.Join(t.TempDir(), "absent.properties"), ""); err == nil {
		t.Fatalf("expected error for missing input file")
	}
}
