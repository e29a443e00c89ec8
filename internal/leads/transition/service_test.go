package transition

import (
	"context"
	"errors"
	"testing"
	"time"

	"pipeline_crm_backend/internal/events"
	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/leads/repository"
	"pipeline_crm_backend/platform/apperr"
	"pipeline_crm_backend/platform/db"
	platformevents "pipeline_crm_backend/platform/events"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository for engine tests. It mirrors the
// relevant store semantics: row locking, deterministic manager pick, and
// rollback of side effects when the transaction function fails.
type fakeRepo struct {
	leads    map[uuid.UUID]repository.Lead
	managers map[domain.Team][]repository.Manager
	locked   map[uuid.UUID]bool

	tasks         []repository.CreateTaskParams
	notifications []repository.CreateNotificationParams
	audits        []repository.CreateAuditLogParams
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:    make(map[uuid.UUID]repository.Lead),
		managers: make(map[domain.Team][]repository.Manager),
		locked:   make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) InTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) error {
	snapshot := struct {
		leads  map[uuid.UUID]repository.Lead
		tasks  int
		notifs int
		audits int
	}{
		leads:  make(map[uuid.UUID]repository.Lead, len(f.leads)),
		tasks:  len(f.tasks),
		notifs: len(f.notifications),
		audits: len(f.audits),
	}
	for id, lead := range f.leads {
		snapshot.leads[id] = lead
	}

	if err := fn(ctx, nil); err != nil {
		f.leads = snapshot.leads
		f.tasks = f.tasks[:snapshot.tasks]
		f.notifications = f.notifications[:snapshot.notifs]
		f.audits = f.audits[:snapshot.audits]
		return err
	}
	return nil
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

func (f *fakeRepo) UpdateRouting(ctx context.Context, q db.Querier, params repository.UpdateRoutingParams) (repository.Lead, error) {
	lead, ok := f.leads[params.LeadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Stage = params.Stage
	lead.AssignedTeam = params.AssignedTeam
	lead.AssignedTo = params.AssignedTo
	lead.UpdatedAt = time.Now()
	f.leads[params.LeadID] = lead
	return lead, nil
}

func (f *fakeRepo) FindTeamManager(ctx context.Context, q db.Querier, team domain.Team) (repository.Manager, error) {
	candidates := f.managers[team]
	if len(candidates) == 0 {
		return repository.Manager{}, repository.ErrNoManager
	}
	best := candidates[0]
	for _, m := range candidates[1:] {
		if m.ID.String() < best.ID.String() {
			best = m
		}
	}
	return best, nil
}

func (f *fakeRepo) CreateTask(ctx context.Context, q db.Querier, params repository.CreateTaskParams) (uuid.UUID, error) {
	f.tasks = append(f.tasks, params)
	return uuid.New(), nil
}

func (f *fakeRepo) CreateNotification(ctx context.Context, q db.Querier, params repository.CreateNotificationParams) (uuid.UUID, error) {
	f.notifications = append(f.notifications, params)
	return uuid.New(), nil
}

func (f *fakeRepo) CreateAuditLog(ctx context.Context, q db.Querier, params repository.CreateAuditLogParams) error {
	f.audits = append(f.audits, params)
	return nil
}

func (f *fakeRepo) ListAuditLogs(ctx context.Context, leadID uuid.UUID) ([]repository.AuditLog, error) {
	logs := make([]repository.AuditLog, 0)
	for _, params := range f.audits {
		if params.LeadID != leadID {
			continue
		}
		actor := params.ActorID
		logs = append(logs, repository.AuditLog{
			ID:        uuid.New(),
			LeadID:    params.LeadID,
			ActorID:   &actor,
			Action:    params.Action,
			FromStage: params.FromStage,
			ToStage:   params.ToStage,
			Notes:     params.Notes,
		})
	}
	return logs, nil
}

func seedLead(f *fakeRepo, stage domain.Stage) repository.Lead {
	lead := repository.Lead{
		ID:           uuid.New(),
		FirstName:    "Asha",
		LastName:     "Verma",
		Email:        "asha@example.com",
		Phone:        "+911234567890",
		Stage:        stage,
		AssignedTeam: domain.StageOwnership[stage],
	}
	f.leads[lead.ID] = lead
	return lead
}

func TestChangeStageAssignsManagerAndCreatesSideEffects(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageNewInquiry)
	manager := repository.Manager{ID: uuid.New(), Username: "admin_mgr"}
	repo.managers[domain.TeamAdmin] = []repository.Manager{manager}

	fixed := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc := New(repo, nil, nil).WithClock(func() time.Time { return fixed })

	actor := uuid.New()
	updated, err := svc.ChangeStage(context.Background(), lead.ID, domain.StageProposal, actor, "moving ahead")
	if err != nil {
		t.Fatalf("ChangeStage failed: %v", err)
	}

	if updated.Stage != domain.StageProposal {
		t.Errorf("stage = %s, want %s", updated.Stage, domain.StageProposal)
	}
	if updated.AssignedTeam != domain.StageOwnership[domain.StageProposal] {
		t.Errorf("assigned team = %s, want %s", updated.AssignedTeam, domain.StageOwnership[domain.StageProposal])
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != manager.ID {
		t.Errorf("assigned to = %v, want %s", updated.AssignedTo, manager.ID)
	}

	if len(repo.tasks) != 1 {
		t.Fatalf("tasks created = %d, want 1", len(repo.tasks))
	}
	task := repo.tasks[0]
	if task.OwnerID != manager.ID {
		t.Errorf("task owner = %s, want %s", task.OwnerID, manager.ID)
	}
	if task.Priority != "High" {
		t.Errorf("task priority = %s, want High", task.Priority)
	}
	if want := fixed.Add(24 * time.Hour); !task.Deadline.Equal(want) {
		t.Errorf("task deadline = %s, want %s", task.Deadline, want)
	}

	if len(repo.notifications) != 1 {
		t.Fatalf("notifications created = %d, want 1", len(repo.notifications))
	}
	if repo.notifications[0].RecipientID != manager.ID {
		t.Errorf("notification recipient = %s, want %s", repo.notifications[0].RecipientID, manager.ID)
	}

	if len(repo.audits) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(repo.audits))
	}
	audit := repo.audits[0]
	if audit.FromStage != domain.StageNewInquiry || audit.ToStage != domain.StageProposal {
		t.Errorf("audit stages = %s -> %s, want %s -> %s",
			audit.FromStage, audit.ToStage, domain.StageNewInquiry, domain.StageProposal)
	}
	if audit.ActorID != actor {
		t.Errorf("audit actor = %s, want %s", audit.ActorID, actor)
	}
	if audit.Notes != "moving ahead" {
		t.Errorf("audit notes = %q", audit.Notes)
	}
}

func TestChangeStageDeterministicManagerTieBreak(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageNewInquiry)

	a := repository.Manager{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Username: "first"}
	b := repository.Manager{ID: uuid.MustParse("ffffffff-0000-0000-0000-000000000000"), Username: "second"}
	repo.managers[domain.TeamAdmin] = []repository.Manager{b, a}

	svc := New(repo, nil, nil)

	for i := 0; i < 3; i++ {
		updated, err := svc.ChangeStage(context.Background(), lead.ID, domain.StageQualification, uuid.New(), "")
		if err != nil {
			t.Fatalf("ChangeStage failed: %v", err)
		}
		if updated.AssignedTo == nil || *updated.AssignedTo != a.ID {
			t.Fatalf("run %d picked %v, want lowest id %s", i, updated.AssignedTo, a.ID)
		}
	}
}

func TestChangeStageWithoutManagerUnassignsLead(t *testing.T) {
	repo := newFakeRepo()
	assignee := uuid.New()
	lead := seedLead(repo, domain.StageDiscovery)
	lead.AssignedTo = &assignee
	repo.leads[lead.ID] = lead

	svc := New(repo, nil, nil)

	updated, err := svc.ChangeStage(context.Background(), lead.ID, domain.StageNegotiation, uuid.New(), "")
	if err != nil {
		t.Fatalf("ChangeStage failed: %v", err)
	}

	if updated.AssignedTo != nil {
		t.Errorf("assigned to = %v, want nil", updated.AssignedTo)
	}
	if len(repo.tasks) != 0 {
		t.Errorf("tasks created = %d, want 0", len(repo.tasks))
	}
	if len(repo.notifications) != 0 {
		t.Errorf("notifications created = %d, want 0", len(repo.notifications))
	}
	// Audit trail is written regardless of assignment outcome.
	if len(repo.audits) != 1 {
		t.Errorf("audit entries = %d, want 1", len(repo.audits))
	}
}

func TestChangeStageRejectsUnknownStageBeforeMutation(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageNewInquiry)

	svc := New(repo, nil, nil)

	_, err := svc.ChangeStage(context.Background(), lead.ID, domain.Stage("TOTALLY_BOGUS"), uuid.New(), "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	if got := repo.leads[lead.ID].Stage; got != domain.StageNewInquiry {
		t.Errorf("lead stage mutated to %s", got)
	}
	if len(repo.audits) != 0 || len(repo.tasks) != 0 {
		t.Error("side effects created for rejected transition")
	}
}

func TestChangeStageRequiresActor(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageNewInquiry)

	svc := New(repo, nil, nil)

	_, err := svc.ChangeStage(context.Background(), lead.ID, domain.StageWon, uuid.Nil, "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestChangeStageUnknownLead(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, nil, nil)

	_, err := svc.ChangeStage(context.Background(), uuid.New(), domain.StageWon, uuid.New(), "")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestChangeStageConflictOnLockedLead(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageNewInquiry)
	repo.locked[lead.ID] = true

	svc := New(repo, nil, nil)

	_, err := svc.ChangeStage(context.Background(), lead.ID, domain.StageWon, uuid.New(), "")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestChangeStageRollsBackOnAuditFailure(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageNewInquiry)
	repo.managers[domain.TeamAdmin] = []repository.Manager{{ID: uuid.New(), Username: "mgr"}}

	failing := &auditFailingRepo{fakeRepo: repo}
	svc := New(failing, nil, nil)

	_, err := svc.ChangeStage(context.Background(), lead.ID, domain.StageWon, uuid.New(), "")
	if err == nil {
		t.Fatal("expected error")
	}

	// The whole chain rolls back: no stage change, no task, no notification.
	if got := repo.leads[lead.ID].Stage; got != domain.StageNewInquiry {
		t.Errorf("lead stage = %s after rollback, want %s", got, domain.StageNewInquiry)
	}
	if len(repo.tasks) != 0 || len(repo.notifications) != 0 {
		t.Error("side effects survived rollback")
	}
}

type auditFailingRepo struct {
	*fakeRepo
}

func (r *auditFailingRepo) CreateAuditLog(ctx context.Context, q db.Querier, params repository.CreateAuditLogParams) error {
	return errors.New("audit insert failed")
}

func TestCanEdit(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageNewInquiry) // routed to ADMIN

	svc := New(repo, nil, nil)

	tests := []struct {
		name      string
		isManager bool
		team      domain.Team
		want      bool
	}{
		{"manager from another team", true, domain.TeamTech, true},
		{"member of owning team", false, domain.TeamAdmin, true},
		{"member of other team", false, domain.TeamSales, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.CanEdit(context.Background(), tc.isManager, tc.team, lead.ID)
			if err != nil {
				t.Fatalf("CanEdit failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("CanEdit = %v, want %v", got, tc.want)
			}
		})
	}

	if _, err := svc.CanEdit(context.Background(), false, domain.TeamSales, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing lead err = %v, want not found", err)
	}
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler platformevents.Handler) {}

func TestChangeStagePublishesEventWithLeadName(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo, domain.StageNewInquiry)
	manager := repository.Manager{ID: uuid.New(), Username: "admin_mgr"}
	repo.managers[domain.TeamAdmin] = []repository.Manager{manager}

	bus := &recordingBus{}
	svc := New(repo, bus, nil)

	if _, err := svc.ChangeStage(context.Background(), lead.ID, domain.StageProposal, uuid.New(), ""); err != nil {
		t.Fatalf("ChangeStage failed: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("events published = %d, want 1", len(bus.published))
	}
	event, ok := bus.published[0].(events.LeadStageChanged)
	if !ok {
		t.Fatalf("published event type = %T, want LeadStageChanged", bus.published[0])
	}
	if event.LeadName != "Asha Verma" {
		t.Errorf("lead name = %q, want %q", event.LeadName, "Asha Verma")
	}
	if event.AssignedTo == nil || *event.AssignedTo != manager.ID {
		t.Errorf("assigned to = %v, want %s", event.AssignedTo, manager.ID)
	}
	if event.ToStage != string(domain.StageProposal) {
		t.Errorf("to stage = %q, want %q", event.ToStage, domain.StageProposal)
	}
}
