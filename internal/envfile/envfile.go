// Package envfile parses .env files placed next to the config file.
//
// Only simple KEY=VALUE lines are supported, with optional single or double
// quoting, comments starting with #, and an optional leading "export ".
package envfile

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/openpcli/pcli-setup/internal/messages"
)

// Parse reads .env content into a key-value map.
// Later assignments to the same key win, matching shell sourcing order.
func Parse(content string) (map[string]string, error) {
	env := make(map[string]string)
	if content == "" {
		return env, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf(messages.EnvfileLineErrorFmt, lineNo, err)
		}
		if !ok {
			continue
		}
		env[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf(messages.EnvfileReadFailedFmt, err)
	}

	return env, nil
}

// Filter returns the entries of env whose keys start with prefix.
// The prefix is kept on the returned keys.
func Filter(env map[string]string, prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range env {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// Merge overlays each map onto the previous ones; later maps win.
func Merge(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// parseLine parses a single .env line.
// Returns the key/value, whether the line carried an assignment, and an
// error for invalid syntax. Blank lines and comments return ok=false.
func parseLine(line string) (string, string, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false, nil
	}
	if rest, found := strings.CutPrefix(trimmed, "export "); found {
		trimmed = strings.TrimSpace(rest)
	}
	key, rawValue, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", false, fmt.Errorf(messages.EnvfileExpectedKeyValue)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false, fmt.Errorf(messages.EnvfileExpectedKeyValue)
	}
	value, err := parseValue(strings.TrimSpace(rawValue))
	if err != nil {
		return "", "", false, err
	}
	return key, value, true, nil
}

// parseValue decodes an optionally quoted value. Unquoted values are taken
// verbatim; a trailing comment is only recognized after a quoted value.
func parseValue(raw string) (string, error) {
	switch {
	case strings.HasPrefix(raw, `"`):
		return parseQuoted(raw, '"', true)
	case strings.HasPrefix(raw, `'`):
		return parseQuoted(raw, '\'', false)
	default:
		return raw, nil
	}
}

// parseQuoted decodes a value starting with the given quote rune.
// Double-quoted values honor \\, \", \n, and \r escapes; single-quoted
// values are literal. Anything after the closing quote other than
// whitespace or a comment is an error.
func parseQuoted(raw string, quote byte, allowEscapes bool) (string, error) {
	var b strings.Builder
	escaped := false
	for i := 1; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			switch c {
			case '\\', '"':
				b.WriteByte(c)
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte('\\')
				b.WriteByte(c)
			}
			escaped = false
			continue
		}
		if allowEscapes && c == '\\' {
			escaped = true
			continue
		}
		if c == quote {
			if err := validateSuffix(raw[i+1:]); err != nil {
				return "", err
			}
			return b.String(), nil
		}
		b.WriteByte(c)
	}
	return "", fmt.Errorf(messages.EnvfileUnterminatedQuotedValue)
}

// validateSuffix checks trailing content after a quoted value.
// Whitespace and a comment beginning with # are allowed.
func validateSuffix(suffix string) error {
	trimmed := strings.TrimSpace(suffix)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}
	return fmt.Errorf(messages.EnvfileInvalidQuotedSuffix)
}
