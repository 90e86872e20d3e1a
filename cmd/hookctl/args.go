package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// errBadKeyword is returned for --kw values without '='.
var errBadKeyword = errors.New("keyword argument must be key=value")

// parseKeywords turns key=value pairs into a keyword map. Later keys win.
func parseKeywords(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", errBadKeyword, pair)
		}
		out[key] = parseValue(value)
	}
	return out, nil
}

// parseValue converts command-line text to an int, float or bool when it
// parses as one, and leaves it a string otherwise.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
