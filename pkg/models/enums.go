package models

// WorkflowType identifies which SDLC phase family a workflow runs.
type WorkflowType string

const (
	WorkflowTypeSpecify   WorkflowType = "specify"
	WorkflowTypePlan      WorkflowType = "plan"
	WorkflowTypeTasks     WorkflowType = "tasks"
	WorkflowTypeImplement WorkflowType = "implement"
)

// IsValid checks if the workflow type is a known value.
func (t WorkflowType) IsValid() bool {
	switch t {
	case WorkflowTypeSpecify, WorkflowTypePlan, WorkflowTypeTasks, WorkflowTypeImplement:
		return true
	default:
		return false
	}
}

// WorkflowStatus is the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending         WorkflowStatus = "pending"
	WorkflowStatusInProgress      WorkflowStatus = "in_progress"
	WorkflowStatusWaitingApproval WorkflowStatus = "waiting_approval"
	WorkflowStatusCompleted       WorkflowStatus = "completed"
	WorkflowStatusFailed          WorkflowStatus = "failed"
)

// IsValid checks if the workflow status is a known value.
func (s WorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowStatusPending, WorkflowStatusInProgress, WorkflowStatusWaitingApproval,
		WorkflowStatusCompleted, WorkflowStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowStatusCompleted || s == WorkflowStatusFailed
}

// Trigger names the event that justifies a workflow state transition.
type Trigger string

const (
	TriggerStart         Trigger = "start"
	TriggerAgentComplete Trigger = "agent_complete"
	TriggerHumanApproved Trigger = "human_approved"
	TriggerHumanRejected Trigger = "human_rejected"
	TriggerError         Trigger = "error"
)

// IsValid checks if the trigger is a known value.
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerStart, TriggerAgentComplete, TriggerHumanApproved,
		TriggerHumanRejected, TriggerError:
		return true
	default:
		return false
	}
}

// SessionStatus is the lifecycle state of an expert session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusClosed  SessionStatus = "closed"
	SessionStatusExpired SessionStatus = "expired"
)

// IsValid checks if the session status is a known value.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusClosed, SessionStatusExpired:
		return true
	default:
		return false
	}
}

// MessageRole identifies who produced a session message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleHuman     MessageRole = "human"
)

// IsValid checks if the message role is a known value.
func (r MessageRole) IsValid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleHuman:
		return true
	default:
		return false
	}
}

// EscalationStatus is the lifecycle state of a human escalation.
type EscalationStatus string

const (
	EscalationStatusPending  EscalationStatus = "pending"
	EscalationStatusResolved EscalationStatus = "resolved"
	EscalationStatusExpired  EscalationStatus = "expired"
)

// IsValid checks if the escalation status is a known value.
func (s EscalationStatus) IsValid() bool {
	switch s {
	case EscalationStatusPending, EscalationStatusResolved, EscalationStatusExpired:
		return true
	default:
		return false
	}
}

// HumanAction is the action a human reviewer took on an escalation.
type HumanAction string

const (
	HumanActionConfirm    HumanAction = "confirm"
	HumanActionCorrect    HumanAction = "correct"
	HumanActionAddContext HumanAction = "add_context"
)

// IsValid checks if the human action is a known value.
func (a HumanAction) IsValid() bool {
	switch a {
	case HumanActionConfirm, HumanActionCorrect, HumanActionAddContext:
		return true
	default:
		return false
	}
}

// AskStatus is the outcome of an ask_expert exchange.
type AskStatus string

const (
	AskStatusResolved     AskStatus = "resolved"
	AskStatusPendingHuman AskStatus = "pending_human"
)

// AuditStatus classifies a completed exchange in the audit log.
type AuditStatus string

const (
	AuditStatusResolved  AuditStatus = "resolved"
	AuditStatusEscalated AuditStatus = "escalated"
)
