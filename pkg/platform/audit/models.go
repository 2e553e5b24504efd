package audit

import (
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This enables
// different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: capital
	// movements, settlement outcomes, board reviews. These require
	// tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// authorization failures, admin actions, updater revocations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Actor is the identity that performed the action.
	Actor id.Identity
	// Subject is the identity the action applies to, when different from Actor.
	Subject    id.Identity
	Action     AuditEvent
	ActivityID string
	ProposalID uint64
	Amount     uint64
	// Outcome carries the signed settlement result for completion events.
	Outcome   int64
	Decision  string
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	// Reserve events
	EventReserveInitialized      AuditEvent = "reserve_initialized"
	EventParticipantJoined       AuditEvent = "participant_joined"
	EventCapitalDeposited        AuditEvent = "capital_deposited"
	EventCapitalWithdrawn        AuditEvent = "capital_withdrawn"
	EventParticipantDeactivated  AuditEvent = "participant_deactivated"

	// Activity events
	EventActivityProposed        AuditEvent = "activity_proposed"
	EventActivityApproved        AuditEvent = "activity_approved"
	EventActivityCompleted       AuditEvent = "activity_completed"
	EventActivityRejected        AuditEvent = "activity_rejected"
	EventCapitalDeployedRealtime AuditEvent = "capital_deployed_realtime"
	EventProfitsDistributed      AuditEvent = "profits_distributed"

	// Compliance events
	EventComplianceVerified AuditEvent = "compliance_verified"
	EventComplianceFlagged  AuditEvent = "compliance_flagged"

	// Score events
	EventScoreUpdated     AuditEvent = "score_updated"
	EventWeightsUpdated   AuditEvent = "weights_updated"
	EventSnapshotCreated  AuditEvent = "snapshot_created"
	EventUpdaterAuthorized AuditEvent = "updater_authorized"
	EventUpdaterRevoked    AuditEvent = "updater_revoked"

	// Governance events
	EventProposalCreated    AuditEvent = "proposal_created"
	EventVoteCast           AuditEvent = "vote_cast"
	EventComplianceReview   AuditEvent = "compliance_review"
	EventProposalExecuted   AuditEvent = "proposal_executed"
	EventProposalCanceled   AuditEvent = "proposal_canceled"
	EventBoardMemberAdded   AuditEvent = "board_member_added"
	EventBoardMemberRemoved AuditEvent = "board_member_removed"

	// Private deployment events
	EventPrivateCapitalDeployed AuditEvent = "private_capital_deployed"
	EventPrivateStateCommitted  AuditEvent = "private_state_committed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - capital movements and verdicts, tamper-proof storage
	EventReserveInitialized:      CategoryCompliance,
	EventParticipantJoined:       CategoryCompliance,
	EventCapitalDeposited:        CategoryCompliance,
	EventCapitalWithdrawn:        CategoryCompliance,
	EventActivityApproved:        CategoryCompliance,
	EventActivityCompleted:       CategoryCompliance,
	EventCapitalDeployedRealtime: CategoryCompliance,
	EventProfitsDistributed:      CategoryCompliance,
	EventComplianceVerified:      CategoryCompliance,
	EventComplianceFlagged:       CategoryCompliance,
	EventComplianceReview:        CategoryCompliance,
	EventProposalExecuted:        CategoryCompliance,
	EventPrivateCapitalDeployed:  CategoryCompliance,
	EventPrivateStateCommitted:   CategoryCompliance,

	// Security events - admin and authorization surface
	EventParticipantDeactivated: CategorySecurity,
	EventWeightsUpdated:         CategorySecurity,
	EventUpdaterAuthorized:      CategorySecurity,
	EventUpdaterRevoked:         CategorySecurity,
	EventBoardMemberAdded:       CategorySecurity,
	EventBoardMemberRemoved:     CategorySecurity,
	EventProposalCanceled:       CategorySecurity,

	// Operations events - routine activity
	EventActivityProposed: CategoryOperations,
	EventActivityRejected: CategoryOperations,
	EventScoreUpdated:     CategoryOperations,
	EventSnapshotCreated:  CategoryOperations,
	EventProposalCreated:  CategoryOperations,
	EventVoteCast:         CategoryOperations,
}

// Category returns the EventCategory for this audit event. Unknown events
// default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
