// Package security validates user-supplied symbols and masks secrets before
// they reach logs or the terminal.
package security

import (
	"regexp"
	"strings"
	"unicode"

	apperrors "peakline/internal/errors"
)

// MaxSymbolLength bounds symbol length.
const MaxSymbolLength = 32

// Symbols such as 600519, 000001.SZ, sh600519, BRK-B or M&M. A symbol
// becomes part of a file name, so separators and dot runs are rejected.
var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._&-]*$`)

// ValidateSymbol rejects symbols that are empty, too long or could escape the
// bar directory.
func ValidateSymbol(symbol string) error {
	trimmed := strings.TrimSpace(symbol)
	switch {
	case trimmed == "":
		return apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty")
	case len(trimmed) > MaxSymbolLength:
		return apperrors.NewValidationError("symbol", symbol, "symbol too long (max 32 characters)")
	case strings.Contains(trimmed, ".."):
		return apperrors.NewValidationError("symbol", symbol, "symbol cannot contain '..'")
	case !symbolPattern.MatchString(trimmed):
		return apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}
	return nil
}

// SanitizeSymbol trims a symbol and drops characters ValidateSymbol rejects.
func SanitizeSymbol(symbol string) string {
	var result strings.Builder
	for _, r := range strings.TrimSpace(symbol) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._&-", r)) {
			result.WriteRune(r)
		}
	}
	return strings.TrimLeft(result.String(), "._&-")
}
