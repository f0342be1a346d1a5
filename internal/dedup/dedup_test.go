package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forge/internal/models"
)

func TestCanonicalHashNormalizesCaseAndWhitespace(t *testing.T) {
	require.Equal(t, CanonicalHash("Fix the bug"), CanonicalHash("  FIX THE BUG  "))
	require.NotEqual(t, CanonicalHash("Fix the bug"), CanonicalHash("Fix the  bug"))
	require.Len(t, CanonicalHash("anything"), 16)
	require.Regexp(t, "^[0-9a-f]{16}$", CanonicalHash(""))
}

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	records := []models.TrainingRecord{
		{Prompt: "Fix the bug", ResponsePrimary: "first"},
		{Prompt: "Add a test", ResponsePrimary: "second"},
		{Prompt: "  FIX THE BUG  ", ResponsePrimary: "third"},
		{Prompt: "add a test\n", ResponsePrimary: "fourth"},
		{Prompt: "Rename the package", ResponsePrimary: "fifth"},
	}

	unique, dropped := Dedup(records)
	require.Equal(t, 2, dropped)
	require.Len(t, unique, 3)
	require.Equal(t, "first", unique[0].ResponsePrimary)
	require.Equal(t, "second", unique[1].ResponsePrimary)
	require.Equal(t, "fifth", unique[2].ResponsePrimary)
}

func TestDedupIsIdempotent(t *testing.T) {
	records := []models.TrainingRecord{{Prompt: "a"}, {Prompt: "A"}, {Prompt: "b"}}
	once, _ := Dedup(records)
	twice, dropped := Dedup(once)
	require.Zero(t, dropped)
	require.Equal(t, once, twice)
}

func TestDedupEmpty(t *testing.T) {
	unique, dropped := Dedup(nil)
	require.Empty(t, unique)
	require.Zero(t, dropped)
}
