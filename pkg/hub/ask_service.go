package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sdlc-forge/maestro/pkg/agent"
	"github.com/sdlc-forge/maestro/pkg/audit"
	"github.com/sdlc-forge/maestro/pkg/config"
	"github.com/sdlc-forge/maestro/pkg/forge"
	"github.com/sdlc-forge/maestro/pkg/models"
	"github.com/sdlc-forge/maestro/pkg/slack"
)

// AskService runs expert consultations: route the topic, invoke the worker
// with full session context, gate the answer on confidence, and audit the
// exchange. The audit append happens before the response returns; if it
// fails the request fails even though the exchange is already persisted.
type AskService struct {
	cfg         *config.Config
	router      *Router
	sessions    *SessionService
	escalations *EscalationService
	workers     *agent.Client
	auditLog    *audit.Writer
	forgeSvc    *forge.Service
	slackSvc    *slack.Service
	logger      *slog.Logger
}

// NewAskService wires the consultation pipeline. forgeSvc and slackSvc may
// be nil (notifications disabled).
func NewAskService(
	cfg *config.Config,
	router *Router,
	sessions *SessionService,
	escalations *EscalationService,
	workers *agent.Client,
	auditLog *audit.Writer,
	forgeSvc *forge.Service,
	slackSvc *slack.Service,
) *AskService {
	return &AskService{
		cfg:         cfg,
		router:      router,
		sessions:    sessions,
		escalations: escalations,
		workers:     workers,
		auditLog:    auditLog,
		forgeSvc:    forgeSvc,
		slackSvc:    slackSvc,
		logger:      slog.Default().With("component", "ask-service"),
	}
}

// Ask consults the expert for a topic and applies the confidence gate.
// Below-threshold answers create a pending escalation atomically with the
// exchange messages; the tentative answer is still returned.
func (s *AskService) Ask(ctx context.Context, topic string, req models.AskExpertRequest) (*models.AskExpertResponse, error) {
	if len(req.Question) < models.MinQuestionLen {
		return nil, NewValidationError("question",
			fmt.Sprintf("must be at least %d characters", models.MinQuestionLen))
	}
	if req.FeatureID == "" {
		return nil, NewValidationError("feature_id", "required")
	}

	route, err := s.router.Resolve(topic)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionFor(ctx, route.AgentID, req.FeatureID, req.SessionID)
	if err != nil {
		return nil, err
	}

	invokeReq := &models.InvokeRequest{
		WorkflowType: topic,
		Context:      s.buildContext(ctx, session, req.Context, req.Question),
		Parameters:   workerParameters(route.Agent),
		SessionID:    session.ID,
	}

	start := time.Now()
	invokeResp, err := s.workers.Invoke(ctx, route.Agent.URL, workerTimeout(route.Agent), invokeReq)
	if err != nil {
		return nil, err
	}
	durationMS := time.Since(start).Milliseconds()

	answer := extractAnswer(invokeResp)
	reasons := extractUncertaintyReasons(invokeResp)
	questionID := uuid.New().String()

	userMsg := &models.Message{
		Role:     models.MessageRoleUser,
		Content:  req.Question,
		Metadata: map[string]any{"topic": topic, "question_id": questionID},
	}
	assistantMsg := &models.Message{
		Role:    models.MessageRoleAssistant,
		Content: answer,
		Metadata: map[string]any{
			"confidence":  invokeResp.Confidence,
			"question_id": questionID,
		},
	}

	resp := &models.AskExpertResponse{
		Answer:             answer,
		Result:             invokeResp.Result,
		Confidence:         invokeResp.Confidence,
		Threshold:          route.Threshold,
		UncertaintyReasons: reasons,
		SessionID:          session.ID,
	}

	if invokeResp.Confidence >= route.Threshold {
		resp.Status = models.AskStatusResolved
		if err := s.sessions.AppendExchange(ctx, session.ID, userMsg, assistantMsg); err != nil {
			return nil, err
		}
		if err := s.audit(session.ID, req.FeatureID, topic, req.Question, answer,
			invokeResp.Confidence, models.AuditStatusResolved, nil, durationMS, questionID); err != nil {
			return nil, err
		}
		return resp, nil
	}

	assistantMsg.Metadata["escalation"] = "pending"
	esc, err := s.escalations.CreateForExchange(ctx, CreateEscalationParams{
		SessionID:          session.ID,
		QuestionID:         questionID,
		Topic:              topic,
		Question:           req.Question,
		TentativeAnswer:    answer,
		Confidence:         invokeResp.Confidence,
		UncertaintyReasons: reasons,
		UserMessage:        userMsg,
		AssistantMessage:   assistantMsg,
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit(session.ID, req.FeatureID, topic, req.Question, answer,
		invokeResp.Confidence, models.AuditStatusEscalated, &esc.ID, durationMS, questionID); err != nil {
		return nil, err
	}

	// Notifications are best-effort and happen after the escalation is
	// durable: a tracker or Slack outage never loses the exchange.
	if commentID := s.forgeSvc.PostEscalationNotice(ctx, esc); commentID != "" {
		if err := s.escalations.SetExternalCommentID(ctx, esc.ID, commentID); err != nil {
			s.logger.Warn("Failed to record external comment id",
				"escalation_id", esc.ID, "error", err)
		}
	}
	s.slackSvc.NotifyEscalationCreated(ctx, esc)

	s.logger.Info("Exchange escalated",
		"escalation_id", esc.ID,
		"topic", topic,
		"confidence", invokeResp.Confidence,
		"threshold", route.Threshold)

	resp.Status = models.AskStatusPendingHuman
	resp.EscalationID = &esc.ID
	return resp, nil
}

// Invoke calls a named worker directly, bypassing topic routing and the
// confidence gate. The exchange is still recorded and audited as resolved.
func (s *AskService) Invoke(ctx context.Context, agentID string, req models.InvokeRequest) (*models.HubInvokeResponse, error) {
	if req.WorkflowType == "" {
		return nil, NewValidationError("workflow_type", "required")
	}

	agentCfg, err := s.router.Agent(agentID)
	if err != nil {
		return nil, err
	}

	featureID := invokeFeatureID(req.Context)
	session, err := s.sessionFor(ctx, agentID, featureID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if featureID == "" {
		featureID = session.FeatureID
	}
	if featureID == "" {
		featureID = "unknown"
	}

	if req.Parameters == nil {
		req.Parameters = workerParameters(agentCfg)
	}
	req.SessionID = session.ID

	start := time.Now()
	invokeResp, err := s.workers.Invoke(ctx, agentCfg.URL, workerTimeout(agentCfg), &req)
	if err != nil {
		return nil, err
	}
	durationMS := time.Since(start).Milliseconds()

	question := invokeQuestion(&req)
	answer := extractAnswer(invokeResp)
	questionID := uuid.New().String()

	userMsg := &models.Message{
		Role:     models.MessageRoleUser,
		Content:  question,
		Metadata: map[string]any{"workflow_type": req.WorkflowType, "question_id": questionID},
	}
	assistantMsg := &models.Message{
		Role:    models.MessageRoleAssistant,
		Content: answer,
		Metadata: map[string]any{
			"confidence":  invokeResp.Confidence,
			"question_id": questionID,
		},
	}
	if err := s.sessions.AppendExchange(ctx, session.ID, userMsg, assistantMsg); err != nil {
		return nil, err
	}

	if err := s.audit(session.ID, featureID, req.WorkflowType, question, answer,
		invokeResp.Confidence, models.AuditStatusResolved, nil, durationMS, questionID); err != nil {
		return nil, err
	}

	return &models.HubInvokeResponse{InvokeResponse: invokeResp, SessionID: session.ID}, nil
}

// sessionFor reuses an existing active session or opens a new one.
// A reused session must belong to the resolved agent.
func (s *AskService) sessionFor(ctx context.Context, agentID, featureID, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return s.sessions.CreateSession(ctx, models.CreateSessionRequest{
			AgentID:   agentID,
			FeatureID: featureID,
		})
	}

	session, err := s.sessions.RequireActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.AgentID != agentID {
		return nil, NewValidationError("session_id",
			fmt.Sprintf("session belongs to agent %q, not %q", session.AgentID, agentID))
	}
	return session, nil
}

// buildContext assembles the worker request context: caller context plus the
// session's prior exchanges and the current question. Workers are stateless,
// so every call carries the full history.
func (s *AskService) buildContext(ctx context.Context, session *models.Session, callerCtx map[string]any, question string) map[string]any {
	merged := make(map[string]any, len(callerCtx)+3)
	for k, v := range callerCtx {
		merged[k] = v
	}
	merged["question"] = question
	if session.FeatureID != "" {
		merged["feature_id"] = session.FeatureID
	}

	messages, err := s.sessions.Messages(ctx, session.ID)
	if err != nil {
		// History enriches the answer but is not required for one.
		s.logger.Warn("Failed to load session history",
			"session_id", session.ID, "error", err)
		return merged
	}
	if len(messages) > 0 {
		history := make([]map[string]any, 0, len(messages))
		for _, m := range messages {
			history = append(history, map[string]any{
				"role":    string(m.Role),
				"content": m.Content,
			})
		}
		merged["history"] = history
	}
	return merged
}

// audit durably records the exchange. A failed append fails the request:
// the audit trail must not silently diverge from the session history.
func (s *AskService) audit(sessionID, featureID, topic, question, answer string,
	confidence int, status models.AuditStatus, escalationID *string, durationMS int64, questionID string) error {

	if !s.auditLog.Enabled() {
		return nil
	}

	sid := sessionID
	rec := &models.AuditRecord{
		ID:           questionID,
		Timestamp:    time.Now().UTC(),
		SessionID:    &sid,
		FeatureID:    featureID,
		Topic:        topic,
		Question:     question,
		Answer:       answer,
		Confidence:   confidence,
		Status:       status,
		EscalationID: escalationID,
		DurationMS:   durationMS,
		Metadata:     map[string]any{},
	}
	if err := s.auditLog.Append(rec); err != nil {
		s.logger.Error("Audit append failed",
			"feature_id", featureID, "session_id", sessionID, "error", err)
		return fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}
	return nil
}

func workerTimeout(agentCfg *config.AgentConfig) time.Duration {
	if agentCfg.DefaultTimeout > 0 {
		return agentCfg.DefaultTimeout.Std()
	}
	return config.DefaultAgentTimeout
}

func workerParameters(agentCfg *config.AgentConfig) map[string]any {
	if agentCfg.DefaultModel == "" {
		return nil
	}
	return map[string]any{"model": agentCfg.DefaultModel}
}

// extractAnswer pulls the human-readable answer from a worker result,
// falling back to the compact JSON of the whole result map.
func extractAnswer(resp *models.InvokeResponse) string {
	if answer, ok := resp.Result["answer"].(string); ok && answer != "" {
		return answer
	}
	if len(resp.Result) == 0 {
		return ""
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Sprintf("%v", resp.Result)
	}
	return string(raw)
}

// extractUncertaintyReasons reads the worker's self-reported uncertainty
// from response metadata.
func extractUncertaintyReasons(resp *models.InvokeResponse) []string {
	raw, ok := resp.Metadata["uncertainty_reasons"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	reasons := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			reasons = append(reasons, s)
		}
	}
	if len(reasons) == 0 {
		return nil
	}
	return reasons
}

func invokeFeatureID(contextMap map[string]any) string {
	if v, ok := contextMap["feature_id"].(string); ok {
		return v
	}
	return ""
}

// invokeQuestion renders the user-side message content for a direct invoke.
func invokeQuestion(req *models.InvokeRequest) string {
	if q, ok := req.Context["question"].(string); ok && q != "" {
		return q
	}
	if len(req.Context) > 0 {
		if raw, err := json.Marshal(req.Context); err == nil {
			return fmt.Sprintf("%s: %s", req.WorkflowType, raw)
		}
	}
	return req.WorkflowType
}
