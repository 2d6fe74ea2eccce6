package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases the description, collapses every run of non-alphanumeric
// characters to a single '-', and trims the ends.
func Slug(description string) string {
	s := strings.ToLower(description)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// nextFeatureID derives the canonical feature id inside the given
// transaction: one more than the largest numeric prefix in the workflow
// table, formatted "%03d-%s". The advisory lock serializes concurrent
// creations so the sequence stays monotonic.
func nextFeatureID(ctx context.Context, tx *sql.Tx, description string) (string, error) {
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('workflows_feature_seq'))`); err != nil {
		return "", fmt.Errorf("failed to acquire feature sequence lock: %w", err)
	}

	var maxSeq int
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(CAST(substring(feature_id FROM '^[0-9]{3}') AS INTEGER)), 0)
		FROM workflows
		WHERE feature_id ~ '^[0-9]{3}-'`).Scan(&maxSeq)
	if err != nil {
		return "", fmt.Errorf("failed to read feature sequence: %w", err)
	}

	slug := Slug(description)
	if slug == "" {
		slug = "feature"
	}
	return fmt.Sprintf("%03d-%s", maxSeq+1, slug), nil
}
