package orchestrator

import (
	"fmt"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// NextStatus computes the target status for a trigger against the current
// status. lastPhase distinguishes the two outcomes of human_approved:
// another phase remains (back to in_progress) or the workflow is done
// (completed). Terminal statuses accept no triggers at all.
//
//	pending          -(start)----------> in_progress
//	in_progress      -(agent_complete)-> waiting_approval
//	waiting_approval -(human_approved)-> in_progress | completed
//	waiting_approval -(human_rejected)-> in_progress   (rework)
//	any non-terminal -(error)----------> failed
func NextStatus(current models.WorkflowStatus, trigger models.Trigger, lastPhase bool) (models.WorkflowStatus, error) {
	if current.IsTerminal() {
		return "", fmt.Errorf("%w: workflow is %s", ErrInvalidTransition, current)
	}

	switch trigger {
	case models.TriggerStart:
		if current == models.WorkflowStatusPending {
			return models.WorkflowStatusInProgress, nil
		}
	case models.TriggerAgentComplete:
		if current == models.WorkflowStatusInProgress {
			return models.WorkflowStatusWaitingApproval, nil
		}
	case models.TriggerHumanApproved:
		if current == models.WorkflowStatusWaitingApproval {
			if lastPhase {
				return models.WorkflowStatusCompleted, nil
			}
			return models.WorkflowStatusInProgress, nil
		}
	case models.TriggerHumanRejected:
		if current == models.WorkflowStatusWaitingApproval {
			return models.WorkflowStatusInProgress, nil
		}
	case models.TriggerError:
		return models.WorkflowStatusFailed, nil
	}

	return "", fmt.Errorf("%w: trigger %s not allowed in status %s",
		ErrInvalidTransition, trigger, current)
}
