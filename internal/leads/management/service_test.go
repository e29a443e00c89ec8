package management

import (
	"context"
	"testing"
	"time"

	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/leads/repository"
	revenuerepo "pipeline_crm_backend/internal/revenue/repository"
	"pipeline_crm_backend/platform/apperr"
	"pipeline_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRepo struct {
	leads  map[uuid.UUID]repository.Lead
	locked map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:  make(map[uuid.UUID]repository.Lead),
		locked: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) InTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) error {
	return fn(ctx, nil)
}

func (f *fakeRepo) Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	lead := repository.Lead{
		ID:                 uuid.New(),
		FirstName:          params.FirstName,
		LastName:           params.LastName,
		Email:              params.Email,
		Phone:              params.Phone,
		CompanyName:        params.CompanyName,
		TechRequirements:   params.TechRequirements,
		Stage:              domain.StageNewInquiry,
		AssignedTeam:       domain.StageOwnership[domain.StageNewInquiry],
		AssignedTo:         params.AssignedTo,
		LeadGenerator:      params.LeadGenerator,
		ProjectAmountCents: params.ProjectAmountCents,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (repository.Lead, error) {
	if f.locked[id] {
		return repository.Lead{}, repository.ErrLeadLocked
	}
	return f.GetByID(ctx, id)
}

func (f *fakeRepo) Update(ctx context.Context, q db.Querier, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, ok := f.leads[params.LeadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.FirstName != nil {
		lead.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		lead.LastName = *params.LastName
	}
	if params.Email != nil {
		lead.Email = *params.Email
	}
	if params.Phone != nil {
		lead.Phone = *params.Phone
	}
	if params.CompanyName != nil {
		lead.CompanyName = params.CompanyName
	}
	if params.TechRequirements != nil {
		lead.TechRequirements = params.TechRequirements
	}
	lead.UpdatedAt = time.Now()
	f.leads[params.LeadID] = lead
	return lead, nil
}

func (f *fakeRepo) UpdateFinancials(ctx context.Context, q db.Querier, params repository.UpdateFinancialsParams) (repository.Lead, error) {
	lead, ok := f.leads[params.LeadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.ProjectAmountCents != nil {
		lead.ProjectAmountCents = *params.ProjectAmountCents
	}
	if params.AdvanceAmountCents != nil {
		lead.AdvanceAmountCents = *params.AdvanceAmountCents
	}
	lead.UpdatedAt = time.Now()
	f.leads[params.LeadID] = lead
	return lead, nil
}

func (f *fakeRepo) MarkContacted(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	now := time.Now()
	lead.LastContacted = &now
	lead.UpdatedAt = now
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) List(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, error) {
	leads := make([]repository.Lead, 0)
	for _, lead := range f.leads {
		if filter.Stage != nil && lead.Stage != *filter.Stage {
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.leads, id)
	return nil
}

type fakeRevenue struct {
	records []revenuerepo.CreateParams
}

func (f *fakeRevenue) Create(ctx context.Context, q db.Querier, params revenuerepo.CreateParams) (uuid.UUID, error) {
	f.records = append(f.records, params)
	return uuid.New(), nil
}

func int64Ptr(v int64) *int64 { return &v }

func seedLead(f *fakeRepo, stage domain.Stage, advanceCents int64, generator *uuid.UUID) repository.Lead {
	lead := repository.Lead{
		ID:                 uuid.New(),
		FirstName:          "Ravi",
		LastName:           "Kumar",
		Email:              "ravi@example.com",
		Phone:              "+911234567890",
		Stage:              stage,
		AssignedTeam:       domain.StageOwnership[stage],
		AdvanceAmountCents: advanceCents,
		LeadGenerator:      generator,
	}
	f.leads[lead.ID] = lead
	return lead
}

func TestUpdateFinancialsBooksAdvanceDelta(t *testing.T) {
	repo := newFakeRepo()
	revenue := &fakeRevenue{}
	generator := uuid.New()
	lead := seedLead(repo, domain.StageWon, 50_000, &generator)

	fixed := time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC)
	svc := New(repo, revenue, nil, nil).WithClock(func() time.Time { return fixed })

	updated, err := svc.UpdateFinancials(context.Background(), lead.ID, UpdateFinancialsInput{
		AdvanceAmountCents: int64Ptr(125_000),
	})
	if err != nil {
		t.Fatalf("UpdateFinancials failed: %v", err)
	}
	if updated.AdvanceAmountCents != 125_000 {
		t.Errorf("advance = %d, want 125000", updated.AdvanceAmountCents)
	}

	if len(revenue.records) != 1 {
		t.Fatalf("revenue records = %d, want 1", len(revenue.records))
	}
	rec := revenue.records[0]
	if rec.AmountCents != 75_000 {
		t.Errorf("booked amount = %d, want delta 75000", rec.AmountCents)
	}
	if rec.UserID != generator {
		t.Errorf("booked user = %s, want lead generator %s", rec.UserID, generator)
	}
	if rec.Month != 7 || rec.Year != 2026 {
		t.Errorf("booked period = %d/%d, want 7/2026", rec.Month, rec.Year)
	}
}

func TestUpdateFinancialsRevenueGate(t *testing.T) {
	generator := uuid.New()

	tests := []struct {
		name       string
		stage      domain.Stage
		prior      int64
		next       int64
		generator  *uuid.UUID
		wantBooked bool
	}{
		{"eligible stage with increase", domain.StageProjectExecution, 0, 10_000, &generator, true},
		{"delivered stage with increase", domain.StageDelivered, 5_000, 6_000, &generator, true},
		{"pre-won stage", domain.StageNegotiation, 0, 10_000, &generator, false},
		{"no lead generator", domain.StageWon, 0, 10_000, nil, false},
		{"advance decreased", domain.StageWon, 10_000, 4_000, &generator, false},
		{"advance unchanged", domain.StageWon, 10_000, 10_000, &generator, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			revenue := &fakeRevenue{}
			lead := seedLead(repo, tc.stage, tc.prior, tc.generator)

			svc := New(repo, revenue, nil, nil)
			_, err := svc.UpdateFinancials(context.Background(), lead.ID, UpdateFinancialsInput{
				AdvanceAmountCents: int64Ptr(tc.next),
			})
			if err != nil {
				t.Fatalf("UpdateFinancials failed: %v", err)
			}

			booked := len(revenue.records) == 1
			if booked != tc.wantBooked {
				t.Errorf("booked = %v, want %v", booked, tc.wantBooked)
			}
		})
	}
}

func TestUpdateFinancialsRejectsNegativeAmounts(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageWon, 0, nil)
	svc := New(repo, &fakeRevenue{}, nil, nil)

	_, err := svc.UpdateFinancials(context.Background(), lead.ID, UpdateFinancialsInput{
		AdvanceAmountCents: int64Ptr(-500),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if got := repo.leads[lead.ID].AdvanceAmountCents; got != 0 {
		t.Errorf("advance mutated to %d", got)
	}
}

func TestUpdateFinancialsConflictOnLockedLead(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageWon, 0, nil)
	repo.locked[lead.ID] = true
	svc := New(repo, &fakeRevenue{}, nil, nil)

	_, err := svc.UpdateFinancials(context.Background(), lead.ID, UpdateFinancialsInput{
		AdvanceAmountCents: int64Ptr(1_000),
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestCreateLeadNormalizesPhone(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, &fakeRevenue{}, nil, nil)

	lead, err := svc.CreateLead(context.Background(), CreateLeadInput{
		FirstName: "Asha",
		LastName:  "Verma",
		Email:     "asha@example.com",
		Phone:     "098765 43210",
	})
	if err != nil {
		t.Fatalf("CreateLead failed: %v", err)
	}
	if lead.Phone != "+919876543210" {
		t.Errorf("phone = %q, want E.164 +919876543210", lead.Phone)
	}
	if lead.Stage != domain.StageNewInquiry {
		t.Errorf("stage = %s, want %s", lead.Stage, domain.StageNewInquiry)
	}
}

func TestListLeadsRejectsUnknownStageFilter(t *testing.T) {
	svc := New(newFakeRepo(), &fakeRevenue{}, nil, nil)
	bogus := domain.Stage("NOT_A_STAGE")
	_, err := svc.ListLeads(context.Background(), repository.ListFilter{Stage: &bogus})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestMarkContactedStampsTimestamp(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageProposal, 0, nil)
	svc := New(repo, &fakeRevenue{}, nil, nil)

	updated, err := svc.MarkContacted(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("MarkContacted failed: %v", err)
	}
	if updated.LastContacted == nil {
		t.Fatal("last contacted not set")
	}
}

type duplicateLeadRepo struct {
	*fakeRepo
}

func (d *duplicateLeadRepo) Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	return repository.Lead{}, &pgconn.PgError{Code: "23505", ConstraintName: "leads_email_lower_idx"}
}

func TestCreateLeadDuplicateEmailConflict(t *testing.T) {
	repo := &duplicateLeadRepo{fakeRepo: newFakeRepo()}
	svc := New(repo, &fakeRevenue{}, nil, nil)

	_, err := svc.CreateLead(context.Background(), CreateLeadInput{
		FirstName: "Asha",
		LastName:  "Verma",
		Email:     "dup@example.com",
		Phone:     "098765 43210",
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict on duplicate email", err)
	}
}
