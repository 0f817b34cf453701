package verification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shareperk-engage/pkg/config"
	"shareperk-engage/pkg/errutil"
	"shareperk-engage/pkg/taskname"
	"shareperk-engage/services/campaign"
	"shareperk-engage/services/participation"
	"shareperk-engage/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return nil, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engage.PollInterval = time.Minute
	cfg.Engage.StuckAfter = 15 * time.Minute
	cfg.Engage.MaxAttempts = 3
	cfg.Engage.RetryBaseDelay = time.Minute
	cfg.Engage.ClaimBatchSize = 100
	cfg.Verifier.Timeout = 30 * time.Second
	return cfg
}

type schedulerFixture struct {
	db    *gorm.DB
	sched *Scheduler
	parts *participation.Service
	enq   *fakeEnqueuer
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&campaign.Campaign{},
		&participation.Participation{},
		&participation.ShareVerificationRecord{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	parts := participation.NewService(participation.ServiceParams{DB: db, Node: node})
	enq := &fakeEnqueuer{}
	sched := NewScheduler(SchedulerParams{
		Config:         testConfig(),
		Participations: parts,
		Enqueuer:       enq,
	})
	return &schedulerFixture{db: db, sched: sched, parts: parts, enq: enq}
}

func (f *schedulerFixture) seed(t *testing.T, id string, status participation.Status, scheduledAt time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&participation.Participation{
		ID:                      id,
		CampaignID:              "camp-1",
		CustomerID:              id,
		Metadata:                []byte(`{"post_id":"123456"}`),
		Status:                  status,
		VerificationScheduledAt: scheduledAt,
	}).Error)
}

func TestDispatchDueClaimsAndEnqueues(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Now()

	f.seed(t, "p-due-1", participation.StatusPending, now.Add(-time.Hour))
	f.seed(t, "p-due-2", participation.StatusPending, now.Add(-time.Minute))
	f.seed(t, "p-future", participation.StatusPending, now.Add(time.Hour))
	f.seed(t, "p-busy", participation.StatusVerifying, now.Add(-time.Hour))

	dispatched, err := f.sched.DispatchDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, dispatched)
	require.Len(t, f.enq.tasks, 2)

	ids := map[string]bool{}
	for _, task := range f.enq.tasks {
		require.Equal(t, taskname.ParticipationVerify, task.Type())
		var payload VerifyPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		ids[payload.ParticipationID] = true
	}
	require.True(t, ids["p-due-1"])
	require.True(t, ids["p-due-2"])

	for _, id := range []string{"p-due-1", "p-due-2"} {
		got, err := f.parts.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, participation.StatusVerifying, got.Status)
	}

	got, err := f.parts.Get(context.Background(), "p-future")
	require.NoError(t, err)
	require.Equal(t, participation.StatusPending, got.Status)
}

func TestDispatchDueEnqueueFailureRecoveredBySweep(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Now()

	f.seed(t, "p-1", participation.StatusPending, now.Add(-time.Hour))

	f.enq.err = errors.New("redis down")
	dispatched, err := f.sched.DispatchDue(context.Background())
	require.NoError(t, err)
	require.Zero(t, dispatched)

	// the claim stands: the row is verifying with no job behind it
	got, err := f.parts.Get(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, participation.StatusVerifying, got.Status)

	// a later sweep picks it up once the row goes stale
	f.enq.err = nil
	require.NoError(t, f.db.Model(&participation.Participation{}).
		Where("id = ?", "p-1").
		Update("updated_at", now.Add(-time.Hour)).Error)

	requeued, err := f.sched.SweepStuck(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, requeued)
	require.Len(t, f.enq.tasks, 1)

	got, err = f.parts.Get(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, participation.StatusVerifying, got.Status)
}

func TestSweepStuckIgnoresFreshRows(t *testing.T) {
	f := newSchedulerFixture(t)

	f.seed(t, "p-fresh", participation.StatusVerifying, time.Now())

	requeued, err := f.sched.SweepStuck(context.Background())
	require.NoError(t, err)
	require.Zero(t, requeued)
	require.Empty(t, f.enq.tasks)
}

func TestRequeue(t *testing.T) {
	f := newSchedulerFixture(t)

	err := f.sched.Requeue(context.Background(), "missing")
	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Code)

	f.seed(t, "p-1", participation.StatusVerifying, time.Now())
	require.NoError(t, f.sched.Requeue(context.Background(), "p-1"))
	require.Len(t, f.enq.tasks, 1)
	require.Equal(t, taskname.ParticipationVerify, f.enq.tasks[0].Type())
}
