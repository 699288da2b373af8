package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLines reads a newline-delimited file, trimming whitespace and dropping blank lines.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// LoadSymbols reads the ticker list, one symbol per line, no header.
func LoadSymbols(path string) ([]string, error) {
	symbols, err := LoadLines(path)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%s lists no symbols", path)
	}
	seen := make(map[string]bool, len(symbols))
	out := symbols[:0]
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// LoadCredentials reads a two-line file: account, then secret.
func LoadCredentials(path string) (user, secret string, err error) {
	lines, err := LoadLines(path)
	if err != nil {
		return "", "", err
	}
	if len(lines) < 2 {
		return "", "", fmt.Errorf("%s: expected account and secret lines, got %d", path, len(lines))
	}
	return lines[0], lines[1], nil
}
