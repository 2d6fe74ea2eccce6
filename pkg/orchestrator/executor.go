package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// advanceTimeout bounds the internal transition write after a phase
// finishes.
const advanceTimeout = 30 * time.Second

// launchPhase starts asynchronous execution of the workflow's current
// phase. The HTTP layer never blocks on a worker: the goroutine invokes
// the hub and feeds the outcome back through Advance as agent_complete or
// error. No-op while draining.
func (s *Service) launchPhase(workflow *models.Workflow) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		s.logger.Warn("Draining, phase not launched", "workflow_id", workflow.ID)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancels[workflow.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, workflow.ID)
			s.mu.Unlock()
			cancel()
		}()
		s.runPhase(ctx, workflow)
	}()
}

// runPhase invokes the workflow's agent through the hub and applies the
// resulting trigger.
func (s *Service) runPhase(ctx context.Context, workflow *models.Workflow) {
	phase := ""
	if workflow.CurrentPhase != nil {
		phase = *workflow.CurrentPhase
	}
	agentID := s.cfg.Workflows.AgentFor(workflow.Type)

	s.logger.Info("Phase execution started",
		"workflow_id", workflow.ID,
		"phase", phase,
		"agent", agentID)

	invokeCtx := map[string]any{
		"feature_id":          workflow.FeatureID,
		"feature_description": workflow.FeatureDescription,
		"phase":               phase,
	}
	for k, v := range workflow.Context {
		invokeCtx[k] = v
	}

	resp, err := s.hub.Invoke(ctx, agentID, &models.InvokeRequest{
		WorkflowType: string(workflow.Type),
		Context:      invokeCtx,
	})

	if errors.Is(ctx.Err(), context.Canceled) {
		// Canceled by shutdown or an operator cancel; never advance here.
		// On shutdown the workflow stays in_progress and can be re-driven
		// after restart; on cancel it is already failed.
		s.logger.Warn("Phase execution canceled", "workflow_id", workflow.ID, "phase", phase)
		return
	}

	advanceCtx, cancel := context.WithTimeout(context.Background(), advanceTimeout)
	defer cancel()

	if err != nil {
		s.logger.Error("Phase execution failed",
			"workflow_id", workflow.ID,
			"phase", phase,
			"error", err)
		if _, advErr := s.Advance(advanceCtx, workflow.ID, models.AdvanceWorkflowRequest{
			Trigger:     models.TriggerError,
			PhaseResult: map[string]any{"error": err.Error()},
		}); advErr != nil {
			s.logger.Error("Failed to record phase failure",
				"workflow_id", workflow.ID, "error", advErr)
		}
		return
	}

	phaseResult := resp.Result
	if phaseResult == nil {
		phaseResult = map[string]any{}
	}
	phaseResult["confidence"] = resp.Confidence
	phaseResult["session_id"] = resp.SessionID

	if _, advErr := s.Advance(advanceCtx, workflow.ID, models.AdvanceWorkflowRequest{
		Trigger:     models.TriggerAgentComplete,
		PhaseResult: phaseResult,
	}); advErr != nil {
		s.logger.Error("Failed to record phase completion",
			"workflow_id", workflow.ID, "error", advErr)
		return
	}

	s.logger.Info("Phase execution completed, awaiting approval",
		"workflow_id", workflow.ID,
		"phase", phase,
		"confidence", resp.Confidence)
}

// InFlight reports the number of phase executions currently running.
func (s *Service) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

// Stop drains phase execution: no new phases launch, in-flight phases get
// until the deadline to finish, then their contexts are canceled.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("All phase executions finished")
	case <-ctx.Done():
		s.logger.Warn("Shutdown deadline reached, canceling in-flight phases")
		s.mu.Lock()
		for id, cancel := range s.cancels {
			s.logger.Warn("Canceling phase execution", "workflow_id", id)
			cancel()
		}
		s.mu.Unlock()
		<-done
	}
}
