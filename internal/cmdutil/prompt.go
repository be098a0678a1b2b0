// Package cmdutil holds small helpers shared by the three process
// entrypoints (cmd/datacenter, cmd/backend, cmd/tool): password prompting
// and the common env-with-fallback pattern used throughout their
// cmd/*/main.go files.
package cmdutil

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptPassword prints label to stdout and reads one line from stdin
// without echoing it. Falls back to an echoing bufio read if stdin
// isn't a terminal (e.g. piped input during scripted tests).
func PromptPassword(label string) (string, error) {
	fmt.Print(label)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("cmdutil: read password: %w", err)
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("cmdutil: read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Getenv returns the value of key, or fallback if unset or empty.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
