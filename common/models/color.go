package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// NormalizeColor validates a 6 digit hex color and returns it upper-cased.
// Surrounding whitespace is ignored, a leading '#' is not accepted.
func NormalizeColor(raw string) (string, error) {
	color := strings.TrimSpace(raw)
	if color == "" {
		return "", NewValidationError("color", "the color field is required")
	}
	if !hexColorPattern.MatchString(color) {
		return "", NewValidationError("color", "the color must be in valid hexadecimal format")
	}
	return strings.ToUpper(color), nil
}

// RGB is a color in 8 bit channels
type RGB struct {
	R, G, B uint8
}

// ParseRGB converts a hex color like BADA55 into its channels
func ParseRGB(color string) (RGB, error) {
	normalized, err := NormalizeColor(color)
	if err != nil {
		return RGB{}, err
	}

	v, err := strconv.ParseUint(normalized, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("parse color %s: %w", color, err)
	}

	return RGB{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}
