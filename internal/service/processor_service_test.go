package service

import (
	"context"
	"testing"
	"time"

	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"
	"club-operations-core/internal/core/ports/mocks"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestLogger() zerolog.Logger {
	return zerolog.Nop()
}

type processorFixture struct {
	claimCache   *mocks.MockClaimCache
	eventRepo    *mocks.MockEventRepository
	cursorRepo   *mocks.MockCursorRepository
	accountRepo  *mocks.MockAccountRepository
	transactor   *mocks.MockDBTransactor
	dispatcher   *mocks.MockNotificationDispatcher
	retryTracker *mocks.MockRetryTracker
	crm          *mocks.MockCRMClient
	audit        *mocks.MockAuditService
	pool         pgxmock.PgxPoolIface
	svc          *ProcessorImpl
}

func newProcessorFixture(t *testing.T, ctrl *gomock.Controller) *processorFixture {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	f := &processorFixture{
		claimCache:   mocks.NewMockClaimCache(ctrl),
		eventRepo:    mocks.NewMockEventRepository(ctrl),
		cursorRepo:   mocks.NewMockCursorRepository(ctrl),
		accountRepo:  mocks.NewMockAccountRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		dispatcher:   mocks.NewMockNotificationDispatcher(ctrl),
		retryTracker: mocks.NewMockRetryTracker(ctrl),
		crm:          mocks.NewMockCRMClient(ctrl),
		audit:        mocks.NewMockAuditService(ctrl),
		pool:         pool,
	}
	f.svc = NewProcessor(
		f.claimCache, f.eventRepo, f.cursorRepo, f.accountRepo, f.transactor,
		f.dispatcher, f.retryTracker, f.crm, f.audit,
		"frontdesk@club.example", newTestLogger(),
	)
	return f
}

// expectTx wires the mock transactor to hand out a pgxmock transaction.
func (f *processorFixture) expectTx(t *testing.T, commits bool) {
	f.pool.ExpectBegin()
	if commits {
		f.pool.ExpectCommit()
	}
	f.pool.ExpectRollback() // deferred rollback after commit is a no-op error, ignored

	f.transactor.EXPECT().Begin(gomock.Any()).DoAndReturn(func(ctx context.Context) (pgx.Tx, error) {
		return f.pool.Begin(ctx)
	})
}

func failedInvoiceEvent() *domain.WebhookEvent {
	return &domain.WebhookEvent{
		ProviderEventID: "evt_100",
		Type:            domain.EventInvoicePaymentFailed,
		AggregateID:     "sub_123",
		Email:           "Member@Club.Example",
		PaymentError: &domain.PaymentErrorDetail{
			Message:     "Your card was declined.",
			Code:        "card_declined",
			DeclineCode: "insufficient_funds",
		},
		ReceivedAt: time.Now().UTC(),
	}
}

func TestProcessor_UnknownEventType_Acked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	err := f.svc.Process(context.Background(), &domain.WebhookEvent{
		ProviderEventID: "evt_1",
		Type:            domain.EventType("charge.refunded"),
	})
	assert.NoError(t, err)
}

func TestProcessor_DuplicateViaCache_Discarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)
	event := failedInvoiceEvent()

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_100", claimTTL).Return(false, nil)

	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err)
}

func TestProcessor_CacheErrorFallsThroughToDB(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)
	event := failedInvoiceEvent()

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_100", claimTTL).Return(false, assert.AnError)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(false, nil)

	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err, "DB says duplicate: ack without processing")
}

func TestProcessor_StaleEvent_RejectedAndAcked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	event := &domain.WebhookEvent{
		ProviderEventID: "evt_101",
		Type:            domain.EventInvoiceFinalized, // priority 2
		AggregateID:     "sub_123",
	}

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_101", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "sub_123", 2).Return(false, nil)
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_101", domain.OutcomeStale).Return(nil)

	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err)
}

func TestProcessor_InvoicePaymentFailed_StartsGracePeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)
	event := failedInvoiceEvent()

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_100", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "sub_123", 10).Return(true, nil)
	f.accountRepo.EXPECT().GetByEmail(gomock.Any(), "member@club.example").
		Return(&domain.MembershipAccount{Email: "member@club.example", Status: domain.MembershipActive}, nil)

	f.expectTx(t, true)
	f.accountRepo.EXPECT().StartGracePeriod(gomock.Any(), gomock.Any(), "member@club.example", gomock.Any()).
		Return(int64(1), nil)

	var dispatched []domain.NotificationPayload
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, p domain.NotificationPayload) domain.NotificationResult {
			dispatched = append(dispatched, p)
			return domain.NotificationResult{AllSucceeded: true}
		}).Times(2)

	var synced ports.CRMMembershipUpdate
	f.crm.EXPECT().SyncMembership(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, u ports.CRMMembershipUpdate) error {
			synced = u
			return nil
		})

	f.audit.EXPECT().Log(gomock.Any(), gomock.Any())
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_100", domain.OutcomeApplied).Return(nil)

	err := f.svc.Process(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, dispatched, 2)
	assert.Equal(t, "member@club.example", dispatched[0].UserEmail)
	assert.Contains(t, dispatched[0].Message, "Your card was declined.")
	assert.Equal(t, domain.NotificationPayment, dispatched[0].Type)
	assert.Equal(t, "frontdesk@club.example", dispatched[1].UserEmail)
	assert.Equal(t, domain.NotificationStaffNote, dispatched[1].Type)

	assert.Equal(t, string(domain.MembershipPastDue), synced.MembershipStatus)
	assert.Contains(t, synced.Tags, "payment_failed")
}

func TestProcessor_InvoicePaymentFailed_TerminalSubscription_Skipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	event := failedInvoiceEvent()
	event.SubscriptionStatus = "canceled"

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_100", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "sub_123", 10).Return(true, nil)
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_100", domain.OutcomeSkipped).Return(nil)

	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err)
}

func TestProcessor_InvoicePaymentFailed_DegradedAccount_Skipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)
	event := failedInvoiceEvent()

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_100", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "sub_123", 10).Return(true, nil)
	f.accountRepo.EXPECT().GetByEmail(gomock.Any(), "member@club.example").
		Return(&domain.MembershipAccount{Email: "member@club.example", Status: domain.MembershipSuspended}, nil)
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_100", domain.OutcomeSkipped).Return(nil)

	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err)
}

func TestProcessor_InvoicePaymentFailed_LostRace_SuppressesNotifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)
	event := failedInvoiceEvent()

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_100", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "sub_123", 10).Return(true, nil)
	f.accountRepo.EXPECT().GetByEmail(gomock.Any(), "member@club.example").
		Return(&domain.MembershipAccount{Email: "member@club.example", Status: domain.MembershipActive}, nil)

	f.expectTx(t, true)
	f.accountRepo.EXPECT().StartGracePeriod(gomock.Any(), gomock.Any(), "member@club.example", gomock.Any()).
		Return(int64(0), nil)
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_100", domain.OutcomeSkipped).Return(nil)

	// No Dispatch, SyncMembership, or audit expectations: zero rows
	// means a concurrent delivery already won.
	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err)
}

func TestProcessor_InvoicePaid_Reinstates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	event := &domain.WebhookEvent{
		ProviderEventID: "evt_200",
		Type:            domain.EventInvoicePaid,
		AggregateID:     "sub_123",
		Email:           "member@club.example",
	}

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_200", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "sub_123", 11).Return(true, nil)

	f.expectTx(t, true)
	f.accountRepo.EXPECT().Reinstate(gomock.Any(), gomock.Any(), "member@club.example", gomock.Any()).
		Return(int64(1), nil)

	var dispatched domain.NotificationPayload
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, p domain.NotificationPayload) domain.NotificationResult {
			dispatched = p
			return domain.NotificationResult{AllSucceeded: true}
		})
	f.crm.EXPECT().SyncMembership(gomock.Any(), gomock.Any()).Return(nil)
	f.audit.EXPECT().Log(gomock.Any(), gomock.Any())
	f.retryTracker.EXPECT().Reset(gomock.Any(), "sub_123").Return(nil)
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_200", domain.OutcomeApplied).Return(nil)

	err := f.svc.Process(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "Payment received", dispatched.Title)
}

func TestProcessor_InvoicePaid_NothingToReinstate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	event := &domain.WebhookEvent{
		ProviderEventID: "evt_201",
		Type:            domain.EventInvoicePaymentSucceeded,
		AggregateID:     "sub_123",
		Email:           "member@club.example",
	}

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_201", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "sub_123", 10).Return(true, nil)

	f.expectTx(t, true)
	f.accountRepo.EXPECT().Reinstate(gomock.Any(), gomock.Any(), "member@club.example", gomock.Any()).
		Return(int64(0), nil)
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_201", domain.OutcomeSkipped).Return(nil)

	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err)
}

func TestProcessor_IntentPaymentFailed_Escalates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	perr := &domain.PaymentErrorDetail{Message: "Card expired.", Code: "expired_card"}
	event := &domain.WebhookEvent{
		ProviderEventID: "evt_300",
		Type:            domain.EventIntentPaymentFailed,
		AggregateID:     "pi_777",
		Email:           "member@club.example",
		PaymentError:    perr,
	}

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_300", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "pi_777", 10).Return(true, nil)
	f.retryTracker.EXPECT().RecordFailure(gomock.Any(), "pi_777", perr).
		Return(domain.NewPaymentAttempt("pi_777", 3, domain.ExtractFailureDetail(perr)), nil)

	var dispatched domain.NotificationPayload
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, p domain.NotificationPayload) domain.NotificationResult {
			dispatched = p
			return domain.NotificationResult{AllSucceeded: true}
		})

	var synced ports.CRMMembershipUpdate
	f.crm.EXPECT().SyncMembership(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, u ports.CRMMembershipUpdate) error {
			synced = u
			return nil
		})
	f.audit.EXPECT().Log(gomock.Any(), gomock.Any())
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_300", domain.OutcomeApplied).Return(nil)

	err := f.svc.Process(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "Action required: update your card", dispatched.Title)
	assert.Contains(t, synced.Tags, "requires_card_update")
}

func TestProcessor_IntentPaymentFailed_FirstAttempt_SoftTone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	event := &domain.WebhookEvent{
		ProviderEventID: "evt_301",
		Type:            domain.EventIntentPaymentFailed,
		AggregateID:     "pi_777",
		Email:           "member@club.example",
	}

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_301", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "pi_777", 10).Return(true, nil)
	f.retryTracker.EXPECT().RecordFailure(gomock.Any(), "pi_777", nil).
		Return(domain.NewPaymentAttempt("pi_777", 1, domain.ExtractFailureDetail(nil)), nil)

	var dispatched domain.NotificationPayload
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, p domain.NotificationPayload) domain.NotificationResult {
			dispatched = p
			return domain.NotificationResult{AllSucceeded: true}
		})
	f.crm.EXPECT().SyncMembership(gomock.Any(), gomock.Any()).Return(nil)
	f.audit.EXPECT().Log(gomock.Any(), gomock.Any())
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_301", domain.OutcomeApplied).Return(nil)

	err := f.svc.Process(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "Payment attempt failed", dispatched.Title)
	assert.Contains(t, dispatched.Message, "Payment could not be processed")
}

func TestProcessor_IntentSucceeded_ResetsCounter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	event := &domain.WebhookEvent{
		ProviderEventID: "evt_400",
		Type:            domain.EventIntentSucceeded,
		AggregateID:     "pi_777",
	}

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_400", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "pi_777", 10).Return(true, nil)
	f.retryTracker.EXPECT().Reset(gomock.Any(), "pi_777").Return(nil)
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_400", domain.OutcomeApplied).Return(nil)

	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err)
}

func TestProcessor_LifecycleEvent_RecordedOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newProcessorFixture(t, ctrl)

	event := &domain.WebhookEvent{
		ProviderEventID: "evt_500",
		Type:            domain.EventIntentProcessing,
		AggregateID:     "pi_777",
	}

	f.claimCache.EXPECT().Claim(gomock.Any(), "evt_500", claimTTL).Return(true, nil)
	f.eventRepo.EXPECT().Claim(gomock.Any(), event).Return(true, nil)
	f.cursorRepo.EXPECT().Admit(gomock.Any(), "pi_777", 2).Return(true, nil)
	f.eventRepo.EXPECT().RecordOutcome(gomock.Any(), "evt_500", domain.OutcomeApplied).Return(nil)

	err := f.svc.Process(context.Background(), event)
	assert.NoError(t, err)
}
