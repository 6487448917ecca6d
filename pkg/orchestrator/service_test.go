package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/followup"
	"github.com/jordanlanch/leadrouter/pkg/leadassignment"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/jordanlanch/leadrouter/pkg/templates"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "t1"

var now = time.Date(2026, 4, 2, 16, 0, 0, 0, time.UTC)

type fakeLeads struct {
	mu        sync.Mutex
	leads     map[string]models.Lead
	assigned  []string
	recorded  []int
	assignErr error
	recordErr error
}

func (f *fakeLeads) Get(_ context.Context, _, leadID string) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok {
		return nil, domain.NewNotFoundError("lead")
	}
	return &l, nil
}

func (f *fakeLeads) SetAssignee(_ context.Context, _, leadID, repID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignErr != nil {
		return f.assignErr
	}
	l := f.leads[leadID]
	l.AssigneeID = &repID
	f.leads[leadID] = l
	f.assigned = append(f.assigned, repID)
	return nil
}

func (f *fakeLeads) RecordFollowUps(_ context.Context, _, leadID string, n int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	l := f.leads[leadID]
	l.FollowUpCount += n
	l.LastFollowUp = &at
	f.leads[leadID] = l
	f.recorded = append(f.recorded, n)
	return nil
}

type fakeRules []models.AssignmentRule

func (f fakeRules) ListActive(context.Context, string) ([]models.AssignmentRule, error) {
	return f, nil
}

type fakeTenants struct{ settings models.TenantSettings }

func (f fakeTenants) GetSettings(context.Context, string) (*models.TenantSettings, error) {
	s := f.settings
	return &s, nil
}

// fakeFollowUps stores by idempotency key. failSave and failTask reject every
// write of that shape; failSaveAfter lets the first n primary writes through.
type fakeFollowUps struct {
	mu            sync.Mutex
	actions       map[string]models.FollowUpAction
	tasks         map[string]models.GenericTask
	saveCalls     int
	taskCalls     int
	failSave      bool
	failSaveAfter int
	failTask      bool
}

func newFakeFollowUps() *fakeFollowUps {
	return &fakeFollowUps{actions: map[string]models.FollowUpAction{}, tasks: map[string]models.GenericTask{}, failSaveAfter: -1}
}

func (f *fakeFollowUps) checkSave() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.failSave || (f.failSaveAfter >= 0 && f.saveCalls > f.failSaveAfter) {
		return errors.New(`column "template_id" does not exist`)
	}
	return nil
}

func (f *fakeFollowUps) checkTask() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskCalls++
	if f.failTask {
		return errors.New("tasks table unavailable")
	}
	return nil
}

func (f *fakeFollowUps) hasAction(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.actions[key]
	return ok
}

func (f *fakeFollowUps) hasTask(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tasks[key]
	return ok
}

// fakeStore buffers the writes of each Do call and applies them only when fn
// returns nil.
type fakeStore struct {
	leads     *fakeLeads
	roster    *leadassignment.MemoryRoster
	followUps *fakeFollowUps
	commits   int
	rollbacks int
	// afterSave runs after every accepted primary write.
	afterSave func()
}

func (s *fakeStore) Do(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	tx := &fakeTx{
		store:   s,
		actions: map[string]bool{},
		tasks:   map[string]bool{},
		loads:   map[string]int{},
	}
	if err := fn(ctx, tx); err != nil {
		s.rollbacks++
		return err
	}
	for _, apply := range tx.pending {
		apply()
	}
	s.commits++
	return nil
}

type fakeTx struct {
	store   *fakeStore
	pending []func()
	actions map[string]bool
	tasks   map[string]bool
	loads   map[string]int
}

func (tx *fakeTx) SetAssignee(ctx context.Context, tenantID, leadID, repID string) error {
	leads := tx.store.leads
	leads.mu.Lock()
	err := leads.assignErr
	leads.mu.Unlock()
	if err != nil {
		return err
	}
	tx.pending = append(tx.pending, func() { _ = leads.SetAssignee(ctx, tenantID, leadID, repID) })
	return nil
}

func (tx *fakeTx) RecordFollowUps(ctx context.Context, tenantID, leadID string, n int, at time.Time) error {
	leads := tx.store.leads
	leads.mu.Lock()
	err := leads.recordErr
	leads.mu.Unlock()
	if err != nil {
		return err
	}
	tx.pending = append(tx.pending, func() { _ = leads.RecordFollowUps(ctx, tenantID, leadID, n, at) })
	return nil
}

func (tx *fakeTx) IncrementLoad(ctx context.Context, tenantID, repID string) (int, error) {
	snap, err := tx.store.roster.Load(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	rep, ok := snap.Rep(repID)
	if !ok {
		return 0, domain.NewNotFoundError("rep")
	}
	tx.loads[repID]++
	roster := tx.store.roster
	tx.pending = append(tx.pending, func() { _, _ = roster.IncrementLoad(ctx, tenantID, repID) })
	return rep.CurrentLoad + tx.loads[repID], nil
}

func (tx *fakeTx) Save(_ context.Context, a models.FollowUpAction) (bool, error) {
	f := tx.store.followUps
	if err := f.checkSave(); err != nil {
		return false, err
	}
	if tx.actions[a.IdempotencyKey] || f.hasAction(a.IdempotencyKey) {
		return false, nil
	}
	tx.actions[a.IdempotencyKey] = true
	tx.pending = append(tx.pending, func() {
		f.mu.Lock()
		f.actions[a.IdempotencyKey] = a
		f.mu.Unlock()
	})
	if tx.store.afterSave != nil {
		tx.store.afterSave()
	}
	return true, nil
}

func (tx *fakeTx) SaveTask(_ context.Context, t models.GenericTask) (bool, error) {
	f := tx.store.followUps
	if err := f.checkTask(); err != nil {
		return false, err
	}
	if tx.tasks[t.IdempotencyKey] || f.hasTask(t.IdempotencyKey) {
		return false, nil
	}
	tx.tasks[t.IdempotencyKey] = true
	tx.pending = append(tx.pending, func() {
		f.mu.Lock()
		f.tasks[t.IdempotencyKey] = t
		f.mu.Unlock()
	})
	return true, nil
}

func totalLoad(t *testing.T, roster *leadassignment.MemoryRoster) int {
	t.Helper()
	snap, err := roster.Load(context.Background(), tenant)
	require.NoError(t, err)
	total := 0
	for _, rep := range snap.Reps {
		total += rep.CurrentLoad
	}
	return total
}

type fixture struct {
	svc       *Service
	leads     *fakeLeads
	roster    *leadassignment.MemoryRoster
	followUps *fakeFollowUps
	store     *fakeStore
	metrics   *metrics.Metrics
}

type option func(*Deps)

func setup(t *testing.T, lead models.Lead, ruleSet []models.AssignmentRule, opts ...option) *fixture {
	t.Helper()

	store, err := templates.Default(nil)
	require.NoError(t, err)

	roster := leadassignment.NewMemoryRoster()
	roster.Put(tenant,
		models.Rep{ID: "rep-b", Name: "Bea Park", Email: "bea@dealer.test", Active: true, CurrentLoad: 1, MaxCapacity: 10},
		models.Rep{ID: "rep-a", Name: "Al Cruz", Email: "al@dealer.test", Active: true, CurrentLoad: 4, MaxCapacity: 10},
	)

	f := &fixture{
		leads:     &fakeLeads{leads: map[string]models.Lead{lead.ID: lead}},
		roster:    roster,
		followUps: newFakeFollowUps(),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	f.store = &fakeStore{leads: f.leads, roster: roster, followUps: f.followUps}

	deps := Deps{
		Leads:     f.leads,
		Rules:     fakeRules(ruleSet),
		Roster:    roster,
		Tenants:   fakeTenants{settings: models.TenantSettings{TenantID: tenant, TimeZone: "UTC"}},
		Store:     f.store,
		Resolver:  leadassignment.NewService(leadassignment.NewShardedCounters(), nil),
		Scheduler: followup.NewScheduler(store, "US", nil),
		Vars:      map[string]string{"dealership": "Sunset Motors"},
		Metrics:   f.metrics,
		Now:       func() time.Time { return now },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.svc = NewService(deps)
	return f
}

func newLead() models.Lead {
	return models.Lead{
		ID:       "lead-1",
		TenantID: tenant,
		Stage:    models.StageInquiry,
		Priority: models.PriorityHigh,
		Attributes: map[string]any{
			"first_name": "Ana",
			"email":      "ana@example.com",
			"phone":      "+1 202 456 1111",
			"state":      "CA",
			"budget":     60000.0,
		},
		CreatedAt: now.Add(-10 * time.Minute),
	}
}

func loadOf(t *testing.T, roster *leadassignment.MemoryRoster, repID string) int {
	t.Helper()
	snap, err := roster.Load(context.Background(), tenant)
	require.NoError(t, err)
	rep, ok := snap.Rep(repID)
	require.True(t, ok)
	return rep.CurrentLoad
}

var created = models.LeadEvent{Type: models.EventCreated}

func TestRouteAndSchedule_NewInquiryDefaultRoundRobin(t *testing.T) {
	f := setup(t, newLead(), nil)

	res, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
	require.NoError(t, err)

	require.NotNil(t, res.Assignee)
	assert.Equal(t, "rep-a", res.Assignee.ID, "first ticket goes to the first rep by id")
	assert.Equal(t, models.DirectiveRoundRobin, res.Strategy)
	assert.Empty(t, res.RuleID)
	assert.True(t, res.Routed)
	assert.Equal(t, []string{"rep-a"}, f.leads.assigned)
	assert.Equal(t, 5, loadOf(t, f.roster, "rep-a"))
	assert.Equal(t, 5, res.Assignee.CurrentLoad)
	assert.Equal(t, 1, f.store.commits)

	require.Len(t, res.Actions, 2)
	assert.Equal(t, models.ActionSendEmail, res.Actions[0].ActionType)
	assert.Equal(t, "initial_inquiry", res.Actions[0].TemplateID)
	assert.Equal(t, now.Add(2*time.Hour), res.Actions[0].ScheduledAt)
	assert.Contains(t, res.Actions[0].Body, "Al Cruz")
	assert.Contains(t, res.Actions[0].Body, "Sunset Motors")
	assert.Equal(t, models.ActionScheduleCall, res.Actions[1].ActionType)
	assert.Equal(t, now.Add(4*time.Hour), res.Actions[1].ScheduledAt)
	for _, a := range res.Actions {
		assert.Equal(t, models.ShapePrimary, a.Shape)
		assert.Equal(t, models.ActionScheduled, a.Status)
	}

	assert.Equal(t, 2, res.Stored)
	assert.Len(t, f.followUps.actions, 2)
	assert.Equal(t, 2, f.leads.leads["lead-1"].FollowUpCount)
	assert.Equal(t, now, *f.leads.leads["lead-1"].LastFollowUp)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RuleMatches.WithLabelValues("default")))
}

func TestRouteAndSchedule_RuleMatch(t *testing.T) {
	ruleSet := []models.AssignmentRule{
		{
			ID: "ca-big", Priority: 1, Status: models.RuleActive, CreatedAt: now,
			Conditions: []models.Condition{
				{Field: "state", Operator: models.OpEquals, Value: "CA"},
				{Field: "budget", Operator: models.OpGreaterThan, Value: "50000"},
			},
			Directive: models.AssignmentDirective{Type: models.DirectiveUser, Candidates: []string{"rep-a", "rep-b"}},
		},
	}
	f := setup(t, newLead(), ruleSet)

	res, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
	require.NoError(t, err)
	assert.Equal(t, "rep-b", res.Assignee.ID, "rep-b has the lower load ratio")
	assert.Equal(t, "ca-big", res.RuleID)
	assert.Equal(t, models.DirectiveUser, res.Strategy)
}

func TestRouteAndSchedule_TenantDefaultDirective(t *testing.T) {
	directive := models.AssignmentDirective{Type: models.DirectiveLoadBalance}
	f := setup(t, newLead(), nil, func(d *Deps) {
		d.Tenants = fakeTenants{settings: models.TenantSettings{TenantID: tenant, TimeZone: "Not/AZone", DefaultDirective: &directive}}
	})

	res, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
	require.NoError(t, err)
	assert.Equal(t, "rep-b", res.Assignee.ID)
	assert.Equal(t, models.DirectiveLoadBalance, res.Strategy)
}

func TestRouteAndSchedule_KeepsExistingAssignee(t *testing.T) {
	lead := newLead()
	owner := "rep-b"
	lead.AssigneeID = &owner
	f := setup(t, lead, nil)

	res, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", models.LeadEvent{Type: models.EventStageChanged})
	require.NoError(t, err)
	assert.False(t, res.Routed)
	assert.Equal(t, "rep-b", res.Assignee.ID)
	assert.Empty(t, f.leads.assigned)
	assert.Equal(t, 1, loadOf(t, f.roster, "rep-b"), "no load increment without routing")
	assert.Contains(t, res.Actions[0].Body, "Bea Park")

	t.Run("Reassign routes again", func(t *testing.T) {
		res, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", models.LeadEvent{Type: models.EventManual, Reassign: true})
		require.NoError(t, err)
		assert.True(t, res.Routed)
		assert.Len(t, f.leads.assigned, 1)
	})
}

func TestRouteAndSchedule_Idempotent(t *testing.T) {
	f := setup(t, newLead(), nil)
	ctx := context.Background()

	_, err := f.svc.RouteAndSchedule(ctx, tenant, "lead-1", created)
	require.NoError(t, err)
	res, err := f.svc.RouteAndSchedule(ctx, tenant, "lead-1", models.LeadEvent{Type: models.EventManual})
	require.NoError(t, err)

	assert.Len(t, res.Actions, 2)
	assert.Equal(t, 0, res.Stored)
	assert.Len(t, f.followUps.actions, 2)
	assert.Equal(t, 2, f.leads.leads["lead-1"].FollowUpCount, "duplicates are not counted twice")
	assert.Equal(t, []int{2}, f.leads.recorded)
}

func TestRouteAndSchedule_DegradedFallback(t *testing.T) {
	f := setup(t, newLead(), nil, func(d *Deps) {
		d.IsStructural = func(error) bool { return true }
	})
	f.followUps.failSave = true

	res, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
	require.NoError(t, err)

	assert.Equal(t, 2, f.followUps.saveCalls)
	assert.Equal(t, 2, f.followUps.taskCalls, "exactly one fallback per action")
	require.Len(t, res.Actions, 2)
	for _, a := range res.Actions {
		assert.Equal(t, models.ShapeDegraded, a.Shape)
		assert.Equal(t, models.ActionScheduled, a.Status)
	}
	for _, task := range f.followUps.tasks {
		assert.NotEmpty(t, task.Title)
		assert.False(t, task.DueAt.IsZero())
	}
	assert.Equal(t, 2, f.leads.leads["lead-1"].FollowUpCount)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.FollowUpWriteErrors.WithLabelValues("primary", "structural")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.FollowUpsStored.WithLabelValues("degraded")))
}

func TestRouteAndSchedule_BothWritesFail(t *testing.T) {
	f := setup(t, newLead(), nil)
	f.followUps.failSave = true
	f.followUps.failTask = true

	_, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
	require.Error(t, err)
	assert.True(t, domain.IsRepositoryWriteFailed(err))
	assert.Contains(t, err.Error(), "lead-1")
	assert.Contains(t, err.Error(), "send_email")
	assert.Equal(t, 1, f.followUps.saveCalls)
	assert.Equal(t, 1, f.followUps.taskCalls)
	assert.Equal(t, 0, f.leads.leads["lead-1"].FollowUpCount)
	assert.Empty(t, f.leads.assigned)
	assert.Equal(t, 4, loadOf(t, f.roster, "rep-a"))
	assert.Equal(t, 1, f.store.rollbacks)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LeadsRouted.WithLabelValues("round_robin", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.LeadsRouted.WithLabelValues("round_robin", "assigned")))
}

func TestRouteAndSchedule_PartialFailureLeavesNothing(t *testing.T) {
	f := setup(t, newLead(), nil)
	f.followUps.failSaveAfter = 1
	f.followUps.failTask = true

	res, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, domain.IsRepositoryWriteFailed(err))
	assert.Contains(t, err.Error(), "schedule_call")

	assert.Empty(t, f.followUps.actions, "the first action is rolled back with the second")
	assert.Empty(t, f.followUps.tasks)
	assert.Empty(t, f.leads.assigned)
	assert.Equal(t, 0, f.leads.leads["lead-1"].FollowUpCount)
	assert.Equal(t, 5, totalLoad(t, f.roster))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.FollowUpsStored.WithLabelValues("primary")))
}

func TestRouteAndSchedule_RetryAfterFailureDoesNotDuplicate(t *testing.T) {
	clock := now
	f := setup(t, newLead(), nil, func(d *Deps) {
		d.Now = func() time.Time { return clock }
	})
	f.followUps.failSaveAfter = 1
	f.followUps.failTask = true
	ctx := context.Background()

	_, err := f.svc.RouteAndSchedule(ctx, tenant, "lead-1", created)
	require.Error(t, err)

	f.followUps.failSaveAfter = -1
	f.followUps.failTask = false
	clock = clock.Add(5 * time.Minute)

	res, err := f.svc.RouteAndSchedule(ctx, tenant, "lead-1", created)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	require.Len(t, f.followUps.actions, 2)

	byType := map[models.ActionType]int{}
	for _, a := range f.followUps.actions {
		byType[a.ActionType]++
		assert.Equal(t, clock, a.CreatedAt)
	}
	assert.Equal(t, 1, byType[models.ActionSendEmail])
	assert.Equal(t, 1, byType[models.ActionScheduleCall])
	assert.Equal(t, 2, f.leads.leads["lead-1"].FollowUpCount)
	assert.Len(t, f.leads.assigned, 1)
	assert.Equal(t, 6, totalLoad(t, f.roster), "only the committed assignment adds load")
}

func TestRouteAndSchedule_AssigneeWriteFailureLeavesLoad(t *testing.T) {
	f := setup(t, newLead(), nil)
	f.leads.assignErr = errors.New("connection reset by peer")

	for i := 0; i < 3; i++ {
		_, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
		require.Error(t, err)
		assert.True(t, domain.IsRepositoryWriteFailed(err))
	}

	assert.Equal(t, 5, totalLoad(t, f.roster))
	assert.Equal(t, 0, f.followUps.saveCalls)
	assert.Equal(t, 3, f.store.rollbacks)
}

func TestRouteAndSchedule_CancelledMidPersistence(t *testing.T) {
	f := setup(t, newLead(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.store.afterSave = cancel

	_, err := f.svc.RouteAndSchedule(ctx, tenant, "lead-1", created)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.followUps.saveCalls)
	assert.Empty(t, f.followUps.actions)
	assert.Empty(t, f.leads.assigned)
	assert.Empty(t, f.leads.recorded)
	assert.Equal(t, 5, totalLoad(t, f.roster))
}

func TestRouteAndSchedule_NoEligibleAssignee(t *testing.T) {
	f := setup(t, newLead(), nil)
	f.roster.Put(tenant,
		models.Rep{ID: "rep-a", Active: false},
		models.Rep{ID: "rep-b", Active: false},
	)

	_, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
	require.Error(t, err)
	assert.True(t, domain.IsNoEligibleAssignee(err))
	assert.Contains(t, err.Error(), "lead-1")
	assert.Empty(t, f.leads.assigned)
	assert.Equal(t, 0, f.followUps.saveCalls)
	assert.Equal(t, 0, f.store.commits)
}

func TestRouteAndSchedule_Cancelled(t *testing.T) {
	f := setup(t, newLead(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.RouteAndSchedule(ctx, tenant, "lead-1", created)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.leads.assigned)
	assert.Equal(t, 0, f.followUps.saveCalls)
	assert.Equal(t, 4, loadOf(t, f.roster, "rep-a"))
}

func TestRouteAndSchedule_LeadNotFound(t *testing.T) {
	f := setup(t, newLead(), nil)

	_, err := f.svc.RouteAndSchedule(context.Background(), tenant, "missing", created)
	assert.True(t, domain.IsNotFound(err))
}

func TestSuggestedActions_NoWrites(t *testing.T) {
	lead := newLead()
	lead.Priority = models.PriorityUrgent
	f := setup(t, lead, nil)

	actions, err := f.svc.SuggestedActions(context.Background(), tenant, "lead-1")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, now.Add(time.Hour), actions[0].ScheduledAt)
	assert.Equal(t, now.Add(2*time.Hour), actions[1].ScheduledAt)

	assert.Empty(t, f.leads.assigned)
	assert.Empty(t, f.leads.recorded)
	assert.Equal(t, 0, f.followUps.saveCalls)
	assert.Equal(t, 4, loadOf(t, f.roster, "rep-a"))
}

func TestRouteAndSchedule_AppointmentInTenantZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	lead := newLead()
	lead.Stage = models.StageAppointmentScheduled
	appt := time.Date(2026, 4, 3, 18, 0, 0, 0, time.UTC)
	lead.AppointmentAt = &appt

	f := setup(t, lead, nil, func(d *Deps) {
		d.Tenants = fakeTenants{settings: models.TenantSettings{TenantID: tenant, TimeZone: ny.String()}}
	})

	res, err := f.svc.RouteAndSchedule(context.Background(), tenant, "lead-1", created)
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, models.ActionSendSMS, res.Actions[0].ActionType)
	assert.Equal(t, appt.Add(-2*time.Hour), res.Actions[0].ScheduledAt)
	assert.Contains(t, res.Actions[0].Body, "2:00 PM EDT")
}
