package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-forge/maestro/pkg/models"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   models.WorkflowStatus
		trigger   models.Trigger
		lastPhase bool
		want      models.WorkflowStatus
		wantErr   bool
	}{
		{"start from pending", models.WorkflowStatusPending, models.TriggerStart, false, models.WorkflowStatusInProgress, false},
		{"start from in_progress", models.WorkflowStatusInProgress, models.TriggerStart, false, "", true},
		{"agent_complete from in_progress", models.WorkflowStatusInProgress, models.TriggerAgentComplete, false, models.WorkflowStatusWaitingApproval, false},
		{"agent_complete from pending", models.WorkflowStatusPending, models.TriggerAgentComplete, false, "", true},
		{"approved with more phases", models.WorkflowStatusWaitingApproval, models.TriggerHumanApproved, false, models.WorkflowStatusInProgress, false},
		{"approved on last phase", models.WorkflowStatusWaitingApproval, models.TriggerHumanApproved, true, models.WorkflowStatusCompleted, false},
		{"approved from in_progress", models.WorkflowStatusInProgress, models.TriggerHumanApproved, true, "", true},
		{"rejected reworks", models.WorkflowStatusWaitingApproval, models.TriggerHumanRejected, false, models.WorkflowStatusInProgress, false},
		{"rejected from pending", models.WorkflowStatusPending, models.TriggerHumanRejected, false, "", true},
		{"error from pending", models.WorkflowStatusPending, models.TriggerError, false, models.WorkflowStatusFailed, false},
		{"error from in_progress", models.WorkflowStatusInProgress, models.TriggerError, false, models.WorkflowStatusFailed, false},
		{"error from waiting_approval", models.WorkflowStatusWaitingApproval, models.TriggerError, true, models.WorkflowStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.current, tt.trigger, tt.lastPhase)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatusTerminalRejectsEverything(t *testing.T) {
	triggers := []models.Trigger{
		models.TriggerStart, models.TriggerAgentComplete, models.TriggerHumanApproved,
		models.TriggerHumanRejected, models.TriggerError,
	}
	for _, status := range []models.WorkflowStatus{models.WorkflowStatusCompleted, models.WorkflowStatusFailed} {
		for _, trigger := range triggers {
			_, err := NextStatus(status, trigger, true)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s + %s", status, trigger)
		}
	}
}
