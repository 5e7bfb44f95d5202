package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dantescur/msfback/internal/catalog"
	"github.com/Dantescur/msfback/internal/session"
	"github.com/Dantescur/msfback/internal/submission"
)

var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

var joLee = session.PersonalInfo{
	Name:  "Jo Lee",
	Email: "JO@Ex.com ",
	Phone: "555-0100-000",
}

// countingKV counts Get calls and fails the first failGets of them with err.
type countingKV struct {
	session.KV

	mu       sync.Mutex
	gets     int
	puts     int
	failGets int
	err      error
}

func (c *countingKV) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	c.gets++
	fail := c.gets <= c.failGets
	c.mu.Unlock()

	if fail {
		return nil, c.err
	}
	return c.KV.Get(ctx, key)
}

func (c *countingKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.KV.Put(ctx, key, value, ttl)
}

type fixture struct {
	engine *Engine
	kv     *countingKV
	ledger *submission.MemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	kv := &countingKV{KV: session.NewMemoryKV()}
	ledger := submission.NewMemoryRepository()

	engine := NewEngine(session.NewStore(kv), cat, ledger,
		WithRetryPolicy(RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}),
		WithClock(func() time.Time { return testNow }),
	)

	return &fixture{engine: engine, kv: kv, ledger: ledger}
}

func (f *fixture) resetCounts() {
	f.kv.mu.Lock()
	defer f.kv.mu.Unlock()
	f.kv.gets, f.kv.puts = 0, 0
}

func (f *fixture) completeSession(t *testing.T, plan session.PlanSelection, addons []string) *session.Session {
	t.Helper()
	ctx := context.Background()

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	_, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.NoError(t, err)
	_, err = f.engine.UpdatePlan(ctx, sess.ID, plan)
	require.NoError(t, err)
	sess, err = f.engine.UpdateAddons(ctx, sess.ID, addons)
	require.NoError(t, err)
	require.Equal(t, session.StepSummary, sess.CurrentStep)

	return sess
}

func TestWizardScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StepPersonalInfo, sess.CurrentStep)
	assert.Nil(t, sess.PersonalInfo)
	assert.Nil(t, sess.PlanSelection)
	assert.Nil(t, sess.Addons)

	sess, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.NoError(t, err)
	assert.Equal(t, session.StepPlan, sess.CurrentStep)
	assert.Equal(t, "jo@ex.com", sess.PersonalInfo.Email)
	assert.Equal(t, "5550100000", sess.PersonalInfo.Phone)

	sess, err = f.engine.UpdatePlan(ctx, sess.ID, session.PlanSelection{PlanID: "pro", BillingPeriod: "yearly"})
	require.NoError(t, err)
	assert.Equal(t, session.StepAddons, sess.CurrentStep)

	sess, err = f.engine.UpdateAddons(ctx, sess.ID, []string{"larger_storage"})
	require.NoError(t, err)
	assert.Equal(t, session.StepSummary, sess.CurrentStep)

	conf, err := f.engine.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, conf.ID)
	assert.Equal(t, sess.ID, conf.SessionID)
	assert.Equal(t, 170.0, conf.Total)
	assert.Equal(t, []string{"larger_storage"}, conf.Addons)

	history, err := f.engine.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []submission.Confirmation{*conf}, history)
}

func TestUpdatePersonalInfo_InvalidLeavesStepAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	_, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, session.PersonalInfo{Name: "J", Email: "nope", Phone: "1"})
	require.Error(t, err)
	assert.Equal(t, session.KindValidationFailed, session.KindOf(err))
	assert.NotEmpty(t, session.DetailsOf(err))

	stored, err := f.engine.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StepPersonalInfo, stored.CurrentStep)
	assert.Nil(t, stored.PersonalInfo)
}

func TestFieldUpdateRederivesAfterNavigation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.completeSession(t, session.PlanSelection{PlanID: "arcade", BillingPeriod: "monthly"}, nil)

	sess, err := f.engine.Navigate(ctx, sess.ID, session.StepPersonalInfo)
	require.NoError(t, err)
	assert.Equal(t, session.StepPersonalInfo, sess.CurrentStep)

	sess, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.NoError(t, err)
	assert.Equal(t, session.StepSummary, sess.CurrentStep, "all sections still validate")
}

func TestTimestampsFollowEveryWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, testNow, sess.CreatedAt)
	assert.Equal(t, sess.CreatedAt, sess.UpdatedAt)

	later := testNow.Add(time.Hour)
	f.engine.now = func() time.Time { return later }

	sess, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.NoError(t, err)
	assert.Equal(t, later, sess.UpdatedAt)
	assert.Equal(t, sess.UpdatedAt, sess.CreatedAt)
}

func TestUpdateNeverCreatesSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.UpdatePersonalInfo(ctx, "abcdefghijklmnopqrstu", joLee)
	require.Error(t, err)
	assert.Equal(t, session.KindNotFound, session.KindOf(err))

	_, err = f.engine.Load(ctx, "abcdefghijklmnopqrstu")
	assert.Equal(t, session.KindNotFound, session.KindOf(err))
	assert.Zero(t, f.kv.puts)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.UpdatePlan(ctx, "abcdefghijklmnopqrstu", session.PlanSelection{PlanID: "pro", BillingPeriod: "yearly"})
	assert.Equal(t, session.KindNotFound, session.KindOf(err))
	assert.Equal(t, 1, f.kv.gets)
}

func TestUpdatePlan_Rejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	_, err = f.engine.UpdatePlan(ctx, sess.ID, session.PlanSelection{PlanID: "ultra", BillingPeriod: "yearly"})
	assert.Equal(t, session.KindInvalidPlanOrAddon, session.KindOf(err))

	_, err = f.engine.UpdatePlan(ctx, sess.ID, session.PlanSelection{PlanID: "pro", BillingPeriod: "weekly"})
	assert.Equal(t, session.KindValidationFailed, session.KindOf(err))

	_, err = f.engine.UpdatePlan(ctx, sess.ID, session.PlanSelection{BillingPeriod: "yearly"})
	assert.Equal(t, session.KindValidationFailed, session.KindOf(err))
}

func TestUpdateAddons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	_, err = f.engine.UpdateAddons(ctx, sess.ID, []string{"larger_storage", "jetpack"})
	require.Error(t, err)
	assert.Equal(t, session.KindInvalidPlanOrAddon, session.KindOf(err))
	assert.Equal(t, []string{`addon "jetpack" is not in the catalog`}, session.DetailsOf(err))

	sess, err = f.engine.UpdateAddons(ctx, sess.ID, []string{"online_services", "larger_storage", "online_services"})
	require.NoError(t, err)
	assert.Equal(t, session.Addons{"larger_storage", "online_services"}, sess.Addons)
	assert.Equal(t, session.StepPersonalInfo, sess.CurrentStep, "addons alone do not unlock later steps")
}

func TestNavigate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)
	sess, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.NoError(t, err)
	require.Equal(t, session.StepPlan, sess.CurrentStep)

	for _, target := range []int{3, 4, 5} {
		_, err = f.engine.Navigate(ctx, sess.ID, target)
		require.Error(t, err)
		assert.Equal(t, session.KindCannotSkipAhead, session.KindOf(err), "target %d", target)
	}

	got, err := f.engine.Navigate(ctx, sess.ID, session.StepPlan)
	require.NoError(t, err)
	assert.Equal(t, session.StepPlan, got.CurrentStep)

	got, err = f.engine.Navigate(ctx, sess.ID, session.StepPersonalInfo)
	require.NoError(t, err)
	assert.Equal(t, session.StepPersonalInfo, got.CurrentStep)

	stored, err := f.engine.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StepPersonalInfo, stored.CurrentStep)
	assert.NotNil(t, stored.PersonalInfo, "navigation keeps entered data")
}

func TestNavigateBelowRangeFailsStepCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	_, err = f.engine.Navigate(ctx, sess.ID, 0)
	assert.Equal(t, session.KindInvalidStepValue, session.KindOf(err))
}

func TestApplyUpdate_ExplicitOutOfRangeIsNotWritten(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)
	f.resetCounts()

	_, err = f.engine.ApplyUpdate(ctx, sess.ID, Partial{Step: SetExplicit(7)})
	assert.Equal(t, session.KindInvalidStepValue, session.KindOf(err))
	assert.Zero(t, f.kv.puts)
}

func TestSubmit_EmptyAddonsTotalsPlanPrice(t *testing.T) {
	f := newFixture(t)
	sess := f.completeSession(t, session.PlanSelection{PlanID: "advanced", BillingPeriod: "monthly"}, []string{})

	conf, err := f.engine.Submit(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.0, conf.Total)
	assert.Empty(t, conf.Addons)
}

func TestSubmit_Incomplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	_, err = f.engine.Submit(ctx, sess.ID)
	require.Error(t, err)
	assert.Equal(t, session.KindIncompleteSubmission, session.KindOf(err))
	assert.Equal(t, []string{
		"personal_info is missing",
		"plan_selection is missing",
		"addons is missing",
		"current_step is 1, expected 4",
	}, session.DetailsOf(err))
}

func TestSubmit_RequiresStepFour(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.completeSession(t, session.PlanSelection{PlanID: "pro", BillingPeriod: "monthly"}, []string{"online_services"})

	_, err := f.engine.Navigate(ctx, sess.ID, session.StepAddons)
	require.NoError(t, err)

	_, err = f.engine.Submit(ctx, sess.ID)
	assert.Equal(t, session.KindIncompleteSubmission, session.KindOf(err))
	assert.Equal(t, []string{"current_step is 3, expected 4"}, session.DetailsOf(err))
}

func TestSubmit_ResubmissionMintsNewConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.completeSession(t, session.PlanSelection{PlanID: "arcade", BillingPeriod: "yearly"},
		[]string{"online_services", "customizable_profile"})

	first, err := f.engine.Submit(ctx, sess.ID)
	require.NoError(t, err)
	second, err := f.engine.Submit(ctx, sess.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 120.0, first.Total)
	assert.Equal(t, first.Total, second.Total)

	history, err := f.engine.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// lostReplyLedger stores the first confirmation but reports a failure,
// as if the database reply never arrived.
type lostReplyLedger struct {
	*submission.MemoryRepository
	calls int
}

func (l *lostReplyLedger) Record(ctx context.Context, c submission.Confirmation) error {
	l.calls++
	if err := l.MemoryRepository.Record(ctx, c); err != nil {
		return err
	}
	if l.calls == 1 {
		return errors.New("read: connection reset by peer")
	}
	return nil
}

func TestSubmit_RetryReusesConfirmationID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ledger := &lostReplyLedger{MemoryRepository: submission.NewMemoryRepository()}
	f.engine.ledger = ledger

	sess := f.completeSession(t, session.PlanSelection{PlanID: "pro", BillingPeriod: "monthly"}, []string{})

	conf, err := f.engine.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.calls)

	history, err := f.engine.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, conf.ID, history[0].ID)
}

func TestLoadQuarantinesCorruptRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id := "abcdefghijklmnopqrstu"
	require.NoError(t, f.kv.KV.Put(ctx, session.KeyPrefix+id, []byte(`{"id":"`+id+`","current_step":99}`), time.Hour))

	_, err := f.engine.Load(ctx, id)
	assert.Equal(t, session.KindNotFound, session.KindOf(err))

	_, err = f.kv.KV.Get(ctx, session.KeyPrefix+id)
	assert.ErrorIs(t, err, session.ErrKeyNotFound)
}

func TestUpdateIgnoresRecordFiledUnderAnotherID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.engine.Init(ctx)
	require.NoError(t, err)
	b, err := f.engine.Init(ctx)
	require.NoError(t, err)

	raw, err := f.kv.KV.Get(ctx, session.KeyPrefix+b.ID)
	require.NoError(t, err)
	require.NoError(t, f.kv.KV.Put(ctx, session.KeyPrefix+a.ID, raw, time.Hour))

	_, err = f.engine.UpdatePersonalInfo(ctx, a.ID, joLee)
	assert.Equal(t, session.KindNotFound, session.KindOf(err))

	stored, err := f.engine.Load(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StepPersonalInfo, stored.CurrentStep)
	assert.Nil(t, stored.PersonalInfo)
}

func TestCancelledContextKeepsAKind(t *testing.T) {
	f := newFixture(t)

	sess, err := f.engine.Init(context.Background())
	require.NoError(t, err)

	f.resetCounts()
	f.kv.failGets = 100
	f.kv.err = errors.New("dial tcp 127.0.0.1:6379: i/o timeout")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.Error(t, err)
	assert.Equal(t, session.KindStoreUnavailable, session.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.kv.gets)
}

func TestPermissionErrorsFailFast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	f.resetCounts()
	f.kv.failGets = 100
	f.kv.err = errors.New("NOPERM this user has no permissions to run the 'get' command")

	_, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.Error(t, err)
	assert.Equal(t, session.KindPermissionDenied, session.KindOf(err))
	assert.Equal(t, 1, f.kv.gets)
}

func TestTransientErrorsExhaustAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	f.resetCounts()
	f.kv.failGets = 100
	f.kv.err = errors.New("dial tcp 127.0.0.1:6379: i/o timeout")

	_, err = f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.Error(t, err)
	assert.Equal(t, session.KindStoreUnavailable, session.KindOf(err))
	assert.ErrorIs(t, err, f.kv.err)
	assert.Equal(t, 3, f.kv.gets)
	assert.Zero(t, f.kv.puts)
}

func TestTransientErrorRecovers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	f.resetCounts()
	f.kv.failGets = 1
	f.kv.err = errors.New("read: connection reset by peer")

	got, err := f.engine.UpdatePersonalInfo(ctx, sess.ID, joLee)
	require.NoError(t, err)
	assert.Equal(t, session.StepPlan, got.CurrentStep)
	assert.Equal(t, 2, f.kv.gets)
}

func TestMalformedIDNeverReachesStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, id := range []string{"", "short", "abcdefghijklmnopqrst!", "abcdefghijklmnopqrstuv"} {
		_, err := f.engine.Load(ctx, id)
		assert.Equal(t, session.KindValidationFailed, session.KindOf(err), "id %q", id)

		_, err = f.engine.Navigate(ctx, id, 1)
		assert.Equal(t, session.KindValidationFailed, session.KindOf(err), "id %q", id)

		err = f.engine.Delete(ctx, id)
		assert.Equal(t, session.KindValidationFailed, session.KindOf(err), "id %q", id)
	}
	assert.Zero(t, f.kv.gets)
	assert.Zero(t, f.kv.puts)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.engine.Init(ctx)
	require.NoError(t, err)

	require.NoError(t, f.engine.Delete(ctx, sess.ID))
	require.NoError(t, f.engine.Delete(ctx, sess.ID))

	_, err = f.engine.Load(ctx, sess.ID)
	assert.Equal(t, session.KindNotFound, session.KindOf(err))
}

func TestRetryPolicyBackOff(t *testing.T) {
	p := RetryPolicy{Attempts: 3, BaseDelay: 150 * time.Millisecond}
	b := p.backOff(context.Background())
	b.Reset()

	assert.Equal(t, 150*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 300*time.Millisecond, b.NextBackOff())
	assert.Equal(t, time.Duration(-1), b.NextBackOff(), "third attempt is the last")
}
