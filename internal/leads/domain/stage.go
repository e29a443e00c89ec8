// Package domain provides core business rules for the leads bounded context.
package domain

// Stage is a named phase in a lead's lifecycle.
type Stage string

const (
	StageNewInquiry       Stage = "NEW_INQUIRY"
	StageQualification    Stage = "QUALIFICATION"
	StageDiscovery        Stage = "DISCOVERY"
	StageProposal         Stage = "PROPOSAL"
	StageNegotiation      Stage = "NEGOTIATION"
	StageWon              Stage = "WON"
	StageProjectExecution Stage = "PROJECT_EXECUTION"
	StageDelivered        Stage = "DELIVERED"
	StageLost             Stage = "LOST"
	StageOnHold           Stage = "ON_HOLD"
)

// Team is an organizational owner category that a lead is routed to.
type Team string

const (
	TeamAdmin Team = "ADMIN"
	TeamSales Team = "SALES"
	TeamTech  Team = "TECH"
)

// StageOwnership maps every stage to the team that governs it. The table is
// fixed: stage governance is not user-configurable. In the current
// configuration every stage funnels through Admin.
var StageOwnership = map[Stage]Team{
	StageNewInquiry:       TeamAdmin,
	StageQualification:    TeamAdmin,
	StageDiscovery:        TeamAdmin,
	StageProposal:         TeamAdmin,
	StageNegotiation:      TeamAdmin,
	StageWon:              TeamAdmin,
	StageProjectExecution: TeamAdmin,
	StageDelivered:        TeamAdmin,
	StageLost:             TeamAdmin,
	StageOnHold:           TeamAdmin,
}

// AllStages lists every recognized stage. Kept in pipeline order for display.
var AllStages = []Stage{
	StageNewInquiry,
	StageQualification,
	StageDiscovery,
	StageProposal,
	StageNegotiation,
	StageWon,
	StageProjectExecution,
	StageDelivered,
	StageLost,
	StageOnHold,
}

// IsKnownStage reports whether the value is a recognized stage.
// Transition requests with an unknown stage are rejected before any mutation.
func IsKnownStage(stage Stage) bool {
	_, ok := StageOwnership[stage]
	return ok
}

// stagnationExemptStages are stages where a lead no longer counts as stagnant.
var stagnationExemptStages = map[Stage]bool{
	StageWon:       true,
	StageLost:      true,
	StageDelivered: true,
}

// IsStagnationExempt reports whether the stage is excluded from the
// per-assignee stagnation check.
func IsStagnationExempt(stage Stage) bool {
	return stagnationExemptStages[stage]
}

// staleContactExemptStages are stages excluded from the stale-contact sweep.
var staleContactExemptStages = map[Stage]bool{
	StageLost:      true,
	StageDelivered: true,
	StageOnHold:    true,
}

// IsStaleContactExempt reports whether the stage is excluded from the
// stale-contact reminder sweep.
func IsStaleContactExempt(stage Stage) bool {
	return staleContactExemptStages[stage]
}

// revenueEligibleStages are stages in which incoming payments count toward
// the lead generator's monthly revenue. Advance money only counts once the
// lead has crossed WON.
var revenueEligibleStages = map[Stage]bool{
	StageWon:              true,
	StageProjectExecution: true,
	StageDelivered:        true,
}

// IsRevenueEligible reports whether an advance-amount increase in this stage
// should be booked as revenue.
func IsRevenueEligible(stage Stage) bool {
	return revenueEligibleStages[stage]
}

// DisplayName returns the human-readable stage label used in reminder and
// notification messages.
func (s Stage) DisplayName() string {
	switch s {
	case StageNewInquiry:
		return "New Inquiry"
	case StageQualification:
		return "Qualification"
	case StageDiscovery:
		return "Discovery"
	case StageProposal:
		return "Proposal"
	case StageNegotiation:
		return "Negotiation"
	case StageWon:
		return "Won"
	case StageProjectExecution:
		return "Project Execution"
	case StageDelivered:
		return "Delivered"
	case StageLost:
		return "Lost"
	case StageOnHold:
		return "On Hold"
	default:
		return string(s)
	}
}

// CanEdit implements the edit permission predicate: managers can always edit,
// team members only when the lead is currently routed to their team.
func CanEdit(isManager bool, userTeam Team, leadTeam Team) bool {
	if isManager {
		return true
	}
	return userTeam == leadTeam
}
