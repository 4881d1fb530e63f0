package usecase

import (
	"fmt"
	"regexp"
	"strings"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// queryKey derives the cache key component for a search: lower-cased,
// whitespace-collapsed query plus the pagination window, so "Greek  Yogurt"
// and "greek yogurt" share one cache row but different pages do not.
func queryKey(query string, limit, offset int) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = whitespacePattern.ReplaceAllString(q, " ")
	return fmt.Sprintf("%s|%d|%d", q, limit, offset)
}

// barcodeKey is the cache key for a barcode lookup. Barcodes are exact
// identifiers; no normalization beyond trimming.
func barcodeKey(code string) string {
	return "barcode:" + strings.TrimSpace(code)
}
