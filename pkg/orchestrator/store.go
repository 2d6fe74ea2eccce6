package orchestrator

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// Column lists shared by the scan helpers. Keep in sync with the
// migrations in pkg/orchestrator/migrations.
const (
	workflowColumns = `workflow_id, workflow_type, status, feature_id, feature_description,
		current_phase, context, result, error_message, created_at, updated_at, completed_at`

	historyColumns = `history_id, workflow_id, from_status, to_status, trigger, metadata, created_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		w            models.Workflow
		currentPhase sql.NullString
		contextRaw   []byte
		resultRaw    []byte
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)
	err := row.Scan(&w.ID, &w.Type, &w.Status, &w.FeatureID, &w.FeatureDescription,
		&currentPhase, &contextRaw, &resultRaw, &errorMessage,
		&w.CreatedAt, &w.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if currentPhase.Valid {
		v := currentPhase.String
		w.CurrentPhase = &v
	}
	if len(contextRaw) > 0 {
		if err := json.Unmarshal(contextRaw, &w.Context); err != nil {
			return nil, fmt.Errorf("corrupt workflow context for %s: %w", w.ID, err)
		}
	}
	if len(resultRaw) > 0 {
		if err := json.Unmarshal(resultRaw, &w.Result); err != nil {
			return nil, fmt.Errorf("corrupt workflow result for %s: %w", w.ID, err)
		}
	}
	if errorMessage.Valid {
		v := errorMessage.String
		w.ErrorMessage = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		w.CompletedAt = &t
	}
	return &w, nil
}

func scanHistory(row rowScanner) (*models.WorkflowHistory, error) {
	var (
		h        models.WorkflowHistory
		metadata []byte
	)
	err := row.Scan(&h.ID, &h.WorkflowID, &h.FromStatus, &h.ToStatus, &h.Trigger,
		&metadata, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &h.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt history metadata for %s: %w", h.ID, err)
		}
	}
	return &h, nil
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
