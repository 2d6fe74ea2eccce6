// Package orchestrator drives persistent SDLC workflows through their
// state machine: pending, in_progress, waiting_approval, completed,
// failed. Every transition is recorded in an append-only history table
// and commits atomically with the status change.
package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sdlc-forge/maestro/pkg/config"
	"github.com/sdlc-forge/maestro/pkg/hubclient"
	"github.com/sdlc-forge/maestro/pkg/models"
)

// Service owns workflow persistence and transitions. Phase execution runs
// on background goroutines (see executor.go); everything else is
// synchronous request handling.
type Service struct {
	db     *sql.DB
	cfg    *config.Config
	hub    *hubclient.Client
	logger *slog.Logger

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	draining bool
	wg       sync.WaitGroup
}

// NewService creates the workflow service.
func NewService(db *sql.DB, cfg *config.Config, hub *hubclient.Client) *Service {
	return &Service{
		db:      db,
		cfg:     cfg,
		hub:     hub,
		logger:  slog.Default().With("component", "orchestrator"),
		cancels: make(map[string]context.CancelFunc),
	}
}

// CreateWorkflow derives the feature id, persists the workflow, records the
// pending to in_progress start transition, and kicks off phase 1
// asynchronously. The caller gets the post-start snapshot immediately.
func (s *Service) CreateWorkflow(ctx context.Context, req models.CreateWorkflowRequest) (*models.WorkflowResponse, error) {
	if !req.WorkflowType.IsValid() {
		return nil, NewValidationError("workflow_type",
			"must be specify, plan, tasks, or implement")
	}
	if len(req.FeatureDescription) < models.MinFeatureDescriptionLen {
		return nil, NewValidationError("feature_description",
			fmt.Sprintf("must be at least %d characters", models.MinFeatureDescriptionLen))
	}

	phases := s.cfg.Workflows.PhasesFor(req.WorkflowType)
	firstPhase := phases[0]
	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:                 uuid.New().String(),
		Type:               req.WorkflowType,
		Status:             models.WorkflowStatusInProgress,
		FeatureDescription: req.FeatureDescription,
		CurrentPhase:       &firstPhase,
		Context:            req.Context,
		Result:             map[string]any{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	workflow.FeatureID, err = nextFeatureID(ctx, tx, req.FeatureDescription)
	if err != nil {
		return nil, err
	}

	contextRaw, err := marshalJSON(workflow.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow context: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (workflow_id, workflow_type, status, feature_id,
			feature_description, current_phase, context, result, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', $8, $8)`,
		workflow.ID, workflow.Type, workflow.Status, workflow.FeatureID,
		workflow.FeatureDescription, firstPhase, contextRaw, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert workflow: %w", err)
	}

	history := &models.WorkflowHistory{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		FromStatus: models.WorkflowStatusPending,
		ToStatus:   models.WorkflowStatusInProgress,
		Trigger:    models.TriggerStart,
		Metadata:   map[string]any{"phase": firstPhase},
		CreatedAt:  now,
	}
	if err := insertHistory(ctx, tx, history); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit workflow: %w", err)
	}

	s.logger.Info("Workflow created",
		"workflow_id", workflow.ID,
		"workflow_type", workflow.Type,
		"feature_id", workflow.FeatureID,
		"phase", firstPhase)

	s.launchPhase(workflow)

	return &models.WorkflowResponse{
		Workflow: workflow,
		History:  []*models.WorkflowHistory{history},
	}, nil
}

// GetWorkflow returns the workflow snapshot with its full ordered history.
func (s *Service) GetWorkflow(ctx context.Context, workflowID string) (*models.WorkflowResponse, error) {
	workflow, err := scanWorkflow(s.db.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE workflow_id = $1`, workflowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	history, err := s.History(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return &models.WorkflowResponse{Workflow: workflow, History: history}, nil
}

// History returns the workflow's transitions in append order.
func (s *Service) History(ctx context.Context, workflowID string) ([]*models.WorkflowHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM workflow_history
		 WHERE workflow_id = $1 ORDER BY created_at, history_id`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := make([]*models.WorkflowHistory, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return history, nil
}

// Advance applies a trigger to the workflow under the row lock. The status
// change and its history row commit atomically; an illegal trigger leaves
// both untouched. Transitions back to in_progress relaunch phase execution.
func (s *Service) Advance(ctx context.Context, workflowID string, req models.AdvanceWorkflowRequest) (*models.WorkflowResponse, error) {
	if !req.Trigger.IsValid() {
		return nil, NewValidationError("trigger",
			"must be start, agent_complete, human_approved, human_rejected, or error")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	workflow, err := scanWorkflow(tx.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE workflow_id = $1 FOR UPDATE`, workflowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock workflow: %w", err)
	}

	phases := s.cfg.Workflows.PhasesFor(workflow.Type)
	phaseIdx := currentPhaseIndex(workflow, phases)
	lastPhase := phaseIdx == len(phases)-1

	fromStatus := workflow.Status
	toStatus, err := NextStatus(fromStatus, req.Trigger, lastPhase)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.Status = toStatus
	workflow.UpdatedAt = now

	metadata := map[string]any{}
	if phaseIdx >= 0 {
		metadata["phase"] = phases[phaseIdx]
	}

	switch req.Trigger {
	case models.TriggerAgentComplete:
		if req.PhaseResult != nil && phaseIdx >= 0 {
			if workflow.Result == nil {
				workflow.Result = map[string]any{}
			}
			workflow.Result[phases[phaseIdx]] = req.PhaseResult
			metadata["phase_result"] = req.PhaseResult
		}
	case models.TriggerHumanApproved:
		if lastPhase {
			workflow.CompletedAt = &now
		} else {
			next := phases[phaseIdx+1]
			workflow.CurrentPhase = &next
			metadata["next_phase"] = next
		}
	case models.TriggerError:
		msg := errorMessage(req.PhaseResult)
		workflow.ErrorMessage = &msg
		metadata["error"] = msg
	}

	resultRaw, err := marshalJSON(workflow.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow result: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE workflows
		SET status = $1, current_phase = $2, result = $3, error_message = $4,
			updated_at = $5, completed_at = $6
		WHERE workflow_id = $7`,
		workflow.Status, nullStringPtr(workflow.CurrentPhase), resultRaw,
		nullStringPtr(workflow.ErrorMessage), now, nullTimePtr(workflow.CompletedAt),
		workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	history := &models.WorkflowHistory{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Trigger:    req.Trigger,
		Metadata:   metadata,
		CreatedAt:  now,
	}
	if err := insertHistory(ctx, tx, history); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	s.logger.Info("Workflow advanced",
		"workflow_id", workflowID,
		"from", fromStatus,
		"to", toStatus,
		"trigger", req.Trigger)

	if toStatus == models.WorkflowStatusInProgress &&
		(req.Trigger == models.TriggerHumanApproved || req.Trigger == models.TriggerHumanRejected) {
		s.launchPhase(workflow)
	}

	fullHistory, err := s.History(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return &models.WorkflowResponse{Workflow: workflow, History: fullHistory}, nil
}

// Cancel fails a non-terminal workflow on operator request and stops its
// in-flight phase goroutine, if one is running on this process.
func (s *Service) Cancel(ctx context.Context, workflowID, reason string) (*models.WorkflowResponse, error) {
	if reason == "" {
		reason = "canceled by operator"
	}
	resp, err := s.Advance(ctx, workflowID, models.AdvanceWorkflowRequest{
		Trigger:     models.TriggerError,
		PhaseResult: map[string]any{"error": reason},
	})
	if err != nil {
		return nil, err
	}

	// The error transition is committed; abort the running worker call so
	// its result is discarded instead of advancing the failed workflow.
	s.mu.Lock()
	if cancel, ok := s.cancels[workflowID]; ok {
		cancel()
	}
	s.mu.Unlock()

	return resp, nil
}

// List returns workflows matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters models.WorkflowFilters) (*models.WorkflowListResponse, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	where := `WHERE ($1 = '' OR status = $1) AND ($2 = '' OR feature_id = $2)`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workflows `+where,
		filters.Status, filters.FeatureID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows `+where+`
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		filters.Status, filters.FeatureID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]*models.Workflow, 0)
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read workflows: %w", err)
	}

	return &models.WorkflowListResponse{
		Workflows:  workflows,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, h *models.WorkflowHistory) error {
	metadata, err := marshalJSON(h.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal history metadata: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_history (history_id, workflow_id, from_status, to_status, trigger, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.WorkflowID, h.FromStatus, h.ToStatus, h.Trigger, metadata, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}
	return nil
}

// currentPhaseIndex locates the workflow's current phase in the configured
// sequence; -1 when unset or no longer present (config changed between
// restarts).
func currentPhaseIndex(w *models.Workflow, phases []string) int {
	if w.CurrentPhase == nil {
		return -1
	}
	for i, p := range phases {
		if p == *w.CurrentPhase {
			return i
		}
	}
	return -1
}

func errorMessage(phaseResult map[string]any) string {
	if msg, ok := phaseResult["error"].(string); ok && msg != "" {
		return msg
	}
	return "phase execution failed"
}
