package domain

import "testing"

// Every recognized stage must have an owning team. A stage without an owner
// would leave a transitioned lead with an inconsistent assigned_team.
func TestStageOwnershipCoversAllStages(t *testing.T) {
	for _, stage := range AllStages {
		team, ok := StageOwnership[stage]
		if !ok {
			t.Errorf("stage %s has no owning team", stage)
			continue
		}
		if team != TeamAdmin && team != TeamSales && team != TeamTech {
			t.Errorf("stage %s maps to unknown team %q", stage, team)
		}
	}

	if len(StageOwnership) != len(AllStages) {
		t.Errorf("StageOwnership has %d entries, AllStages has %d", len(StageOwnership), len(AllStages))
	}
}

func TestIsKnownStage(t *testing.T) {
	for _, stage := range AllStages {
		if !IsKnownStage(stage) {
			t.Errorf("IsKnownStage(%s) = false, want true", stage)
		}
	}

	for _, stage := range []Stage{"", "CLOSED", "won", "NEW INQUIRY"} {
		if IsKnownStage(stage) {
			t.Errorf("IsKnownStage(%q) = true, want false", stage)
		}
	}
}

func TestStageExclusionSets(t *testing.T) {
	tests := []struct {
		stage            Stage
		stagnationExempt bool
		staleExempt      bool
		revenueEligible  bool
	}{
		{StageNewInquiry, false, false, false},
		{StageQualification, false, false, false},
		{StageDiscovery, false, false, false},
		{StageProposal, false, false, false},
		{StageNegotiation, false, false, false},
		{StageWon, true, false, true},
		{StageProjectExecution, false, false, true},
		{StageDelivered, true, true, true},
		{StageLost, true, true, false},
		{StageOnHold, false, true, false},
	}

	for _, tc := range tests {
		if got := IsStagnationExempt(tc.stage); got != tc.stagnationExempt {
			t.Errorf("IsStagnationExempt(%s) = %v, want %v", tc.stage, got, tc.stagnationExempt)
		}
		if got := IsStaleContactExempt(tc.stage); got != tc.staleExempt {
			t.Errorf("IsStaleContactExempt(%s) = %v, want %v", tc.stage, got, tc.staleExempt)
		}
		if got := IsRevenueEligible(tc.stage); got != tc.revenueEligible {
			t.Errorf("IsRevenueEligible(%s) = %v, want %v", tc.stage, got, tc.revenueEligible)
		}
	}
}

func TestCanEdit(t *testing.T) {
	tests := []struct {
		name      string
		isManager bool
		userTeam  Team
		leadTeam  Team
		want      bool
	}{
		{"manager always edits", true, TeamTech, TeamAdmin, true},
		{"manager edits own team", true, TeamAdmin, TeamAdmin, true},
		{"member edits own team lead", false, TeamSales, TeamSales, true},
		{"member cannot edit other team lead", false, TeamSales, TeamAdmin, false},
		{"member cannot edit tech lead", false, TeamAdmin, TeamTech, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanEdit(tc.isManager, tc.userTeam, tc.leadTeam); got != tc.want {
				t.Errorf("CanEdit(%v, %s, %s) = %v, want %v", tc.isManager, tc.userTeam, tc.leadTeam, got, tc.want)
			}
		})
	}
}
