// Package dedup removes records whose prompts are equal after normalization.
package dedup

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/noah-isme/forge/internal/models"
)

// CanonicalHash returns the 16 hex digit xxhash64 of the trimmed, lower-cased prompt.
func CanonicalHash(prompt string) string {
	normalized := strings.ToLower(strings.TrimSpace(prompt))
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}

// Dedup keeps the first record for every canonical prompt hash and preserves input order.
func Dedup(records []models.TrainingRecord) ([]models.TrainingRecord, int) {
	seen := make(map[string]struct{}, len(records))
	unique := make([]models.TrainingRecord, 0, len(records))
	for _, record := range records {
		hash := CanonicalHash(record.Prompt)
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		unique = append(unique, record)
	}
	return unique, len(records) - len(unique)
}
