package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"pipeline_crm_backend/internal/events"
	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/reminders/repository"
	"pipeline_crm_backend/platform/apperr"
	platformevents "pipeline_crm_backend/platform/events"

	"github.com/google/uuid"
)

type dedupKey struct {
	leadID     uuid.UUID
	assignedTo uuid.UUID
	rule       string
}

type fakeRepo struct {
	stagnant     []repository.LeadCandidate
	stale        []repository.LeadCandidate
	newUntouched []repository.LeadCandidate

	reminders map[uuid.UUID]repository.Reminder
	pending   map[dedupKey]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		reminders: make(map[uuid.UUID]repository.Reminder),
		pending:   make(map[dedupKey]bool),
	}
}

func (f *fakeRepo) CreateDeduped(ctx context.Context, params repository.CreateParams) (uuid.UUID, bool, error) {
	key := dedupKey{params.LeadID, params.AssignedTo, params.Rule}
	if f.pending[key] {
		return uuid.Nil, false, nil
	}
	id, err := f.Create(ctx, params)
	return id, err == nil, err
}

func (f *fakeRepo) Create(ctx context.Context, params repository.CreateParams) (uuid.UUID, error) {
	id := uuid.New()
	f.reminders[id] = repository.Reminder{
		ID:           id,
		LeadID:       params.LeadID,
		AssignedTo:   params.AssignedTo,
		ReminderType: params.ReminderType,
		Status:       repository.StatusPending,
		Rule:         params.Rule,
		DueDate:      params.DueDate,
		Message:      params.Message,
		CreatedAt:    time.Now(),
	}
	if params.ReminderType == repository.TypeAuto {
		f.pending[dedupKey{params.LeadID, params.AssignedTo, params.Rule}] = true
	}
	return id, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (repository.Reminder, error) {
	rem, ok := f.reminders[id]
	if !ok {
		return repository.Reminder{}, repository.ErrNotFound
	}
	return rem, nil
}

func (f *fakeRepo) ListByAssignee(ctx context.Context, userID uuid.UUID) ([]repository.Reminder, error) {
	out := make([]repository.Reminder, 0)
	for _, rem := range f.reminders {
		if rem.AssignedTo == userID {
			out = append(out, rem)
		}
	}
	return out, nil
}

func (f *fakeRepo) Finalize(ctx context.Context, id uuid.UUID, assignedTo uuid.UUID, status string) (bool, error) {
	rem, ok := f.reminders[id]
	if !ok || rem.AssignedTo != assignedTo || rem.Status != repository.StatusPending {
		return false, nil
	}
	rem.Status = status
	f.reminders[id] = rem
	if rem.ReminderType == repository.TypeAuto {
		delete(f.pending, dedupKey{rem.LeadID, rem.AssignedTo, rem.Rule})
	}
	return true, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, id uuid.UUID, assignedTo uuid.UUID) error {
	rem, ok := f.reminders[id]
	if !ok || rem.AssignedTo != assignedTo {
		return repository.ErrNotFound
	}
	rem.IsRead = true
	f.reminders[id] = rem
	return nil
}

func (f *fakeRepo) StagnantLeads(ctx context.Context, userID uuid.UUID, threshold time.Time) ([]repository.LeadCandidate, error) {
	return f.stagnant, nil
}

func (f *fakeRepo) StaleContactLeads(ctx context.Context, cutoff time.Time) ([]repository.LeadCandidate, error) {
	return f.stale, nil
}

func (f *fakeRepo) NewUntouchedLeads(ctx context.Context, cutoff time.Time) ([]repository.LeadCandidate, error) {
	return f.newUntouched, nil
}

func (f *fakeRepo) ActiveAssignees(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
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

func candidate(assignee uuid.UUID, stage domain.Stage) repository.LeadCandidate {
	return repository.LeadCandidate{
		ID:         uuid.New(),
		FirstName:  "Meera",
		LastName:   "Shah",
		Stage:      stage,
		AssignedTo: assignee,
		UpdatedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCheckAndAlertCreatesOneReminderPerStagnantLead(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	user := uuid.New()
	repo.stagnant = []repository.LeadCandidate{
		candidate(user, domain.StageProposal),
		candidate(user, domain.StageDiscovery),
	}

	svc := New(repo, bus, nil)

	created, err := svc.CheckAndAlert(context.Background(), user)
	if err != nil {
		t.Fatalf("CheckAndAlert failed: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
	if len(bus.published) != 2 {
		t.Errorf("events published = %d, want 2", len(bus.published))
	}

	for _, rem := range repo.reminders {
		if rem.Rule != repository.RuleStagnant {
			t.Errorf("rule = %q, want %q", rem.Rule, repository.RuleStagnant)
		}
		if rem.Status != repository.StatusPending {
			t.Errorf("status = %q, want PENDING", rem.Status)
		}
		if !strings.HasPrefix(rem.Message, "Stagnant Lead: Meera Shah has been in ") {
			t.Errorf("unexpected message %q", rem.Message)
		}
		if !strings.HasSuffix(rem.Message, "since 2026-05-01.") {
			t.Errorf("message missing stagnation date: %q", rem.Message)
		}
	}
}

func TestCheckAndAlertIsIdempotentWhilePending(t *testing.T) {
	repo := newFakeRepo()
	user := uuid.New()
	repo.stagnant = []repository.LeadCandidate{candidate(user, domain.StageProposal)}

	svc := New(repo, &recordingBus{}, nil)

	first, err := svc.CheckAndAlert(context.Background(), user)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := svc.CheckAndAlert(context.Background(), user)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if first != 1 || second != 0 {
		t.Errorf("created = %d then %d, want 1 then 0", first, second)
	}
	if len(repo.reminders) != 1 {
		t.Errorf("reminders stored = %d, want 1", len(repo.reminders))
	}
}

func TestCheckAndAlertFiresAgainAfterCompletion(t *testing.T) {
	repo := newFakeRepo()
	user := uuid.New()
	repo.stagnant = []repository.LeadCandidate{candidate(user, domain.StageProposal)}

	svc := New(repo, &recordingBus{}, nil)

	if _, err := svc.CheckAndAlert(context.Background(), user); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	var reminderID uuid.UUID
	for id := range repo.reminders {
		reminderID = id
	}
	if err := svc.Complete(context.Background(), reminderID, user); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Once the earlier reminder is finalized the lead is eligible again.
	created, err := svc.CheckAndAlert(context.Background(), user)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d after completion, want 1", created)
	}
}

func TestSweepCountsPerRule(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	userA := uuid.New()
	userB := uuid.New()
	repo.stale = []repository.LeadCandidate{
		candidate(userA, domain.StageProposal),
		candidate(userB, domain.StageNegotiation),
	}
	repo.newUntouched = []repository.LeadCandidate{candidate(userA, domain.StageNewInquiry)}

	svc := New(repo, bus, nil)

	counts, err := svc.RunStaleAndNewLeadSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if counts.Stale != 2 || counts.New != 1 {
		t.Errorf("counts = %+v, want Stale=2 New=1", counts)
	}

	rules := map[string]int{}
	for _, rem := range repo.reminders {
		rules[rem.Rule]++
	}
	if rules[repository.RuleStaleContact] != 2 || rules[repository.RuleNewUntouched] != 1 {
		t.Errorf("rules = %v", rules)
	}
}

func TestSweepSameLeadDifferentRules(t *testing.T) {
	repo := newFakeRepo()
	user := uuid.New()
	lead := candidate(user, domain.StageNewInquiry)
	// One lead can be both stale and untouched; the rule tag keeps the
	// reminders distinct.
	repo.stale = []repository.LeadCandidate{lead}
	repo.newUntouched = []repository.LeadCandidate{lead}

	svc := New(repo, &recordingBus{}, nil)

	counts, err := svc.RunStaleAndNewLeadSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if counts.Stale != 1 || counts.New != 1 {
		t.Errorf("counts = %+v, want one per rule", counts)
	}
}

func TestFinalizeLifecycle(t *testing.T) {
	repo := newFakeRepo()
	user := uuid.New()
	other := uuid.New()
	repo.stagnant = []repository.LeadCandidate{candidate(user, domain.StageProposal)}

	svc := New(repo, &recordingBus{}, nil)
	if _, err := svc.CheckAndAlert(context.Background(), user); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	var reminderID uuid.UUID
	for id := range repo.reminders {
		reminderID = id
	}

	if err := svc.Dismiss(context.Background(), reminderID, other); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("foreign dismiss err = %v, want forbidden", err)
	}

	if err := svc.Dismiss(context.Background(), reminderID, user); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}

	// Terminal states are final.
	if err := svc.Complete(context.Background(), reminderID, user); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("complete after dismiss err = %v, want conflict", err)
	}

	if err := svc.Complete(context.Background(), uuid.New(), user); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing reminder err = %v, want not found", err)
	}
}

func TestCreateManualRequiresMessage(t *testing.T) {
	svc := New(newFakeRepo(), &recordingBus{}, nil)
	_, err := svc.CreateManual(context.Background(), uuid.New(), CreateManualInput{LeadID: uuid.New()})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
