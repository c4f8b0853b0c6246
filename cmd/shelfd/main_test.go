package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a config file pointing at temp directories and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
staging_dir = %q
library_dir = %q
log_dir = %q
min_free_gib = 0
`,
		filepath.Join(root, "data"),
		filepath.Join(root, "staging"),
		filepath.Join(root, "library"),
		filepath.Join(root, "logs"))

	path := filepath.Join(root, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandShowsHelp(t *testing.T) {
	output, err := runCommand(t, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, sub := range []string{"run", "queue", "add", "media", "podcast", "config"} {
		if !strings.Contains(output, sub) {
			t.Errorf("help should mention %q subcommand", sub)
		}
	}
}

func TestUnknownCommandFails(t *testing.T) {
	if _, err := runCommand(t, "definitely-not-a-command"); err == nil {
		t.Fatal("unknown subcommand must fail")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Errorf("init output should name the file, got %q", output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("init must refuse to overwrite without --overwrite")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init --overwrite: %v", err)
	}

	configPath := writeTestConfig(t)
	output, err = runCommand(t, "--config", configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(output, "Configuration valid") {
		t.Errorf("unexpected validate output %q", output)
	}
}
