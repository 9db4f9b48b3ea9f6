package isa

import (
	"fmt"
	"strconv"
	"strings"
)

// stripComment removes everything after a comment introducer. Listings written
// by FormatProgram round-trip because the address prefix is also tolerated.
func stripComment(line string) string {
	for _, marker := range []string{"#", ";", "//"} {
		if idx := strings.Index(line, marker); idx >= 0 {
			line = line[:idx]
		}
	}
	return strings.TrimSpace(line)
}

func parseValue(token string, bits int) (uint64, error) {
	token = strings.TrimSuffix(token, ",")

	base := 10
	switch {
	case strings.HasPrefix(token, "0b") || strings.HasPrefix(token, "0B"):
		token = token[2:]
		base = 2
	case strings.HasPrefix(token, "0x") || strings.HasPrefix(token, "0X"):
		token = token[2:]
		base = 16
	}

	token = strings.ReplaceAll(token, "_", "")
	value, err := strconv.ParseUint(token, base, bits)
	if err != nil {
		return 0, fmt.Errorf("bad %d-bit value %q: %w", bits, token, err)
	}
	return value, nil
}

// ParseProgram reads 16-bit instruction words from text lines. One or more
// whitespace-separated words per line; binary (0b), hex (0x) or decimal;
// blank lines and comments are ignored.
func ParseProgram(lines []string) ([]uint16, error) {
	program := make([]uint16, 0, len(lines))

	for i, raw := range lines {
		line := stripComment(raw)
		if line == "" {
			continue
		}

		for _, token := range strings.Fields(line) {
			// 地址标号 (如 "12:") 仅用于可读性。
			if strings.HasSuffix(token, ":") {
				continue
			}
			value, err := parseValue(token, 16)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			program = append(program, uint16(value))
		}
	}

	return program, nil
}

// ParseData reads initial data-memory bytes using the same token syntax.
func ParseData(lines []string) ([]uint8, error) {
	data := make([]uint8, 0, len(lines))

	for i, raw := range lines {
		line := stripComment(raw)
		if line == "" {
			continue
		}

		for _, token := range strings.Fields(line) {
			value, err := parseValue(token, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			data = append(data, uint8(value))
		}
	}

	return data, nil
}
