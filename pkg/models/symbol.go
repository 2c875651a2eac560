package models

import (
	"fmt"
	"strings"
)

const maxSymbolLength = 10

// symbolExtraChars are allowed on top of alphanumerics: class shares
// (BRK.B), indices (^NDXT) and hyphenated tickers (BRK-A).
const symbolExtraChars = ".^-"

// NormalizeSymbol validates a ticker symbol and returns its canonical
// uppercase form. Anything outside the allowed character set is rejected so
// that symbols coming from configuration can never smuggle shell or SQL
// metacharacters into queries or URLs.
func NormalizeSymbol(symbol string) (string, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(symbol))

	if cleaned == "" {
		return "", fmt.Errorf("symbol cannot be empty")
	}

	if len(cleaned) > maxSymbolLength {
		return "", fmt.Errorf("symbol %q exceeds %d characters", cleaned, maxSymbolLength)
	}

	for _, c := range cleaned {
		if c >= 'A' && c <= 'Z' {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		if strings.ContainsRune(symbolExtraChars, c) {
			continue
		}
		return "", fmt.Errorf("symbol %q contains prohibited character %q", cleaned, c)
	}

	return cleaned, nil
}
