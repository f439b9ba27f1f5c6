package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModal(amount int64) *EwalletModal {
	return NewEwalletModal(&MockGateway{}, ProviderGCash, amount, "txn_abc123")
}

// ============================================
// Login stage
// ============================================

func TestModal_MobileNumberDigitsOnly(t *testing.T) {
	m := newTestModal(1500)

	got, err := m.EnterMobileNumber("09x17-555 01a23")
	require.NoError(t, err)
	assert.Equal(t, "0917555012", got)
}

func TestModal_MobileNumberCappedAtTen(t *testing.T) {
	m := newTestModal(1500)

	got, err := m.EnterMobileNumber("091755501234567")
	require.NoError(t, err)
	assert.Equal(t, "0917555012", got)
	assert.Len(t, got, 10)
}

func TestModal_AdvanceRequiresTenDigits(t *testing.T) {
	m := newTestModal(1500)

	_, err := m.EnterMobileNumber("917555012") // 9 digits
	require.NoError(t, err)
	err = m.Advance()
	assert.ErrorIs(t, err, ErrInvalidMobileNumber)
	assert.Equal(t, StageLogin, m.Stage())

	_, err = m.EnterMobileNumber("0917555012")
	require.NoError(t, err)
	require.NoError(t, m.Advance())
	assert.Equal(t, StageConfirm, m.Stage())
}

// ============================================
// Confirm / Processing
// ============================================

func advanceToConfirm(t *testing.T, m *EwalletModal) {
	t.Helper()
	_, err := m.EnterMobileNumber("0917555012")
	require.NoError(t, err)
	require.NoError(t, m.Advance())
}

func TestModal_SuccessfulPayment(t *testing.T) {
	m := newTestModal(1500)
	advanceToConfirm(t, m)

	result, err := m.Proceed(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, StatusSold, result.Status)
	assert.Equal(t, "txn_abc123", result.TransactionID)
	assert.Equal(t, int64(1500), result.Amount)
	assert.Equal(t, StageSucceeded, m.Stage())
}

func TestModal_DeclineReturnsToConfirmNotLogin(t *testing.T) {
	m := newTestModal(250000) // above the mock's limit
	advanceToConfirm(t, m)

	result, err := m.Proceed(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, StageConfirm, m.Stage())
	assert.Equal(t, "insufficient wallet balance", m.FailureMessage())
	// The number survives so a retry doesn't re-enter it.
	assert.Equal(t, "0917555012", m.MobileNumber())
}

func TestModal_ProceedFromLoginRefused(t *testing.T) {
	m := newTestModal(1500)

	_, err := m.Proceed(context.Background())
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestModal_DoubleProceedRefused(t *testing.T) {
	gw := newBlockingGateway()
	m := NewEwalletModal(gw, ProviderPayMaya, 1500, "txn_abc123")
	advanceToConfirm(t, m)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = m.Proceed(context.Background())
	}()
	<-gw.called

	_, err := m.Proceed(context.Background())
	assert.ErrorIs(t, err, ErrProcessing)

	err = m.Cancel()
	assert.ErrorIs(t, err, ErrProcessing, "modal must not be dismissible mid-processing")

	close(gw.release)
	wg.Wait()
	assert.Equal(t, StageSucceeded, m.Stage())
}

// ============================================
// Cancel
// ============================================

func TestModal_CancelFromLoginAndConfirm(t *testing.T) {
	m := newTestModal(1500)
	require.NoError(t, m.Cancel())
	assert.Equal(t, StageCancelled, m.Stage())

	m = newTestModal(1500)
	advanceToConfirm(t, m)
	require.NoError(t, m.Cancel())
	assert.Equal(t, StageCancelled, m.Stage())
}

// blockingGateway holds Process until released, to exercise the
// processing lock.
type blockingGateway struct {
	release chan struct{}
	called  chan struct{}
}

func newBlockingGateway() *blockingGateway {
	return &blockingGateway{
		release: make(chan struct{}),
		called:  make(chan struct{}, 1),
	}
}

func (g *blockingGateway) Process(ctx context.Context, req Request) (Result, error) {
	select {
	case g.called <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	return Result{Success: true, TransactionID: req.ReferenceID, Status: StatusSold, Amount: req.Amount}, nil
}
