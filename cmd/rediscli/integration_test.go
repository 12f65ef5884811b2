//go:build integration

package main

import (
	"bytes"
	"os/exec"
	"strings"
	"testing"
)

func TestOneShotCommand(t *testing.T) {
	cmd := exec.Command("go", "run", "./cmd/rediscli", "--command", "PING")
	cmd.Dir = "../../" // Run from the root of the project
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("Command failed: %v\nStderr: %s", err, stderr.String())
	}

	if got := strings.TrimSpace(out.String()); got != "PONG" {
		t.Errorf("Expected PONG, got %q", got)
	}
}

func TestOneShotError(t *testing.T) {
	cmd := exec.Command("go", "run", "./cmd/rediscli", "--no-color", "--command", "FT.SEARCH idx car")
	cmd.Dir = "../../"
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if got := out.String(); !strings.HasPrefix(got, "(error) ") {
		t.Errorf("Expected an (error) line, got %q", got)
	}
}
