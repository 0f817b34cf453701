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
	"gorm.io/gorm"

	"shareperk-engage/services/campaign"
	"shareperk-engage/services/customer"
	"shareperk-engage/services/participation"
	"shareperk-engage/services/reward"
	"shareperk-engage/services/testutil"
)

type stubVerifier struct {
	result *Result
	err    error
	calls  int
}

func (s *stubVerifier) VerifyPost(ctx context.Context, postID string, th campaign.Thresholds) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type handlerFixture struct {
	db       *gorm.DB
	handler  *Handler
	verifier *stubVerifier
	parts    *participation.Service
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&campaign.Campaign{},
		&customer.Customer{},
		&participation.Participation{},
		&participation.ShareVerificationRecord{},
		&reward.CustomerVoucherGrant{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	parts := participation.NewService(participation.ServiceParams{DB: db, Node: node})
	verifier := &stubVerifier{}
	handler := NewHandler(HandlerParams{
		Participations: parts,
		Campaigns:      campaign.NewService(campaign.ServiceParams{DB: db, Node: node}),
		Customers:      customer.NewService(customer.ServiceParams{DB: db}),
		Verifier:       verifier,
		Distributor:    reward.NewDistributor(reward.DistributorParams{DB: db, Node: node}),
	})
	return &handlerFixture{db: db, handler: handler, verifier: verifier, parts: parts}
}

// seedPipeline creates an active points campaign, a customer and one
// participation already claimed into verifying.
func (f *handlerFixture) seedPipeline(t *testing.T) *participation.Participation {
	t.Helper()

	require.NoError(t, f.db.Create(&campaign.Campaign{
		ID:                     "camp-1",
		Name:                   "Share & Win",
		Status:                 campaign.StatusActive,
		RewardType:             campaign.RewardPoints,
		RewardPoints:           50,
		MinLikes:               10,
		VerificationDelayHours: 24,
	}).Error)
	require.NoError(t, f.db.Create(&customer.Customer{
		ID: "cust-1", Email: "demo@example.com", PointsBalance: 100, PointsEarned: 100,
	}).Error)

	p := &participation.Participation{
		ID:                      "part-1",
		CampaignID:              "camp-1",
		CustomerID:              "cust-1",
		Metadata:                []byte(`{"post_id":"123456"}`),
		Status:                  participation.StatusVerifying,
		VerificationScheduledAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func verifyTask(t *testing.T, participationID string) *asynq.Task {
	t.Helper()
	task, err := NewVerifyTask(participationID)
	require.NoError(t, err)
	return task
}

func (f *handlerFixture) records(t *testing.T, participationID string) []participation.ShareVerificationRecord {
	t.Helper()
	var recs []participation.ShareVerificationRecord
	require.NoError(t, f.db.Where("participation_id = ?", participationID).Order("attempt ASC").Find(&recs).Error)
	return recs
}

func TestHandleVerifyPassRewards(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	f.verifier.result = &Result{
		Exists:          true,
		Engagement:      Engagement{Likes: 15, Shares: 2, Comments: 1},
		MeetsThresholds: true,
		Raw:             json.RawMessage(`{"exists":true,"engagement":{"likes":15}}`),
	}

	require.NoError(t, f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID)))

	got, err := f.parts.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, participation.StatusRewarded, got.Status)
	require.NotNil(t, got.RewardedAt)
	require.Equal(t, 1, got.VerificationAttempts)

	var cust customer.Customer
	require.NoError(t, f.db.First(&cust, "id = ?", "cust-1").Error)
	require.Equal(t, int64(150), cust.PointsBalance)

	recs := f.records(t, p.ID)
	require.Len(t, recs, 1)
	require.True(t, recs[0].Passed)
	require.Equal(t, 1, recs[0].Attempt)
	require.Equal(t, int64(15), recs[0].Likes)
	require.Empty(t, recs[0].FailureReason)
}

func TestHandleVerifyThresholdsNotMetRejects(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	f.verifier.result = &Result{
		Exists:     true,
		Engagement: Engagement{Likes: 3},
	}

	require.NoError(t, f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID)))

	got, err := f.parts.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, participation.StatusRejected, got.Status)
	require.Equal(t, "engagement thresholds not met", got.RejectionReason)

	// the customer keeps their balance
	var cust customer.Customer
	require.NoError(t, f.db.First(&cust, "id = ?", "cust-1").Error)
	require.Equal(t, int64(100), cust.PointsBalance)

	recs := f.records(t, p.ID)
	require.Len(t, recs, 1)
	require.False(t, recs[0].Passed)
	require.Equal(t, "engagement thresholds not met", recs[0].FailureReason)
}

func TestHandleVerifyDeletedPostRejects(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	f.verifier.result = &Result{Exists: true, Deleted: true, MeetsThresholds: true}

	require.NoError(t, f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID)))

	got, err := f.parts.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, participation.StatusRejected, got.Status)
	require.Equal(t, "post was deleted", got.RejectionReason)
}

func TestHandleVerifyMissingPostRejects(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	f.verifier.result = &Result{Exists: false}

	require.NoError(t, f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID)))

	got, err := f.parts.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, participation.StatusRejected, got.Status)
	require.Equal(t, "post no longer exists", got.RejectionReason)
}

func TestHandleVerifyVerifierErrorIsRetryable(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	f.verifier.err = errors.New("upstream timeout")

	err := f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID))
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))

	// no state change, no record: the attempt never completed
	got, gerr := f.parts.Get(context.Background(), p.ID)
	require.NoError(t, gerr)
	require.Equal(t, participation.StatusVerifying, got.Status)
	require.Empty(t, f.records(t, p.ID))
}

func TestHandleVerifyMissingParticipationIsFatal(t *testing.T) {
	f := newHandlerFixture(t)

	err := f.handler.HandleVerifyTask(context.Background(), verifyTask(t, "missing"))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleVerifyMissingCampaignIsFatal(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	require.NoError(t, f.db.Delete(&campaign.Campaign{}, "id = ?", "camp-1").Error)

	err := f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleVerifyMissingPostIDIsFatal(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	require.NoError(t, f.db.Model(&participation.Participation{}).
		Where("id = ?", p.ID).
		Update("metadata", []byte(`{}`)).Error)

	err := f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, f.verifier.calls)
}

func TestHandleVerifyMalformedPayloadIsFatal(t *testing.T) {
	f := newHandlerFixture(t)

	task := asynq.NewTask("participation:verify", []byte("not json"))
	err := f.handler.HandleVerifyTask(context.Background(), task)
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleVerifyFinalizedParticipationIsSkipped(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	require.NoError(t, f.db.Model(&participation.Participation{}).
		Where("id = ?", p.ID).
		Update("status", participation.StatusRewarded).Error)

	require.NoError(t, f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID)))
	require.Zero(t, f.verifier.calls)
	require.Empty(t, f.records(t, p.ID))
}

func TestHandleVerifySecondAttemptNumbering(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedPipeline(t)

	// an earlier failed attempt is already on record
	require.NoError(t, f.parts.AppendRecord(context.Background(), &participation.ShareVerificationRecord{
		ParticipationID: p.ID,
		Attempt:         1,
		PostExists:      true,
		Likes:           4,
		FailureReason:   "engagement thresholds not met",
	}))

	f.verifier.result = &Result{
		Exists:          true,
		Engagement:      Engagement{Likes: 20},
		MeetsThresholds: true,
	}

	require.NoError(t, f.handler.HandleVerifyTask(context.Background(), verifyTask(t, p.ID)))

	recs := f.records(t, p.ID)
	require.Len(t, recs, 2)
	require.Equal(t, 2, recs[1].Attempt)
	require.True(t, recs[1].Passed)
}
