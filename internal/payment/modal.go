package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Stage is the e-wallet modal's position in its flow.
type Stage string

const (
	StageLogin      Stage = "login"
	StageConfirm    Stage = "confirm"
	StageProcessing Stage = "processing"
	StageSucceeded  Stage = "succeeded"
	StageCancelled  Stage = "cancelled"
)

const mobileNumberLength = 10

var (
	ErrWrongStage          = errors.New("action not available in current stage")
	ErrProcessing          = errors.New("payment is processing")
	ErrInvalidMobileNumber = errors.New("mobile number must be 10 digits")
)

// EwalletModal simulates the two-step external e-wallet redirect: a login
// step collecting the wallet's mobile number, a confirmation step showing
// the amount, then processing. While processing, every action is refused;
// only the gateway's resolution moves the modal on. A decline returns to
// Confirm, not Login, so retrying doesn't re-enter the number.
type EwalletModal struct {
	gateway     Gateway
	provider    EwalletProvider
	amount      int64
	referenceID string

	mu      sync.Mutex
	stage   Stage
	mobile  string
	failure string
}

func NewEwalletModal(gateway Gateway, provider EwalletProvider, amount int64, referenceID string) *EwalletModal {
	return &EwalletModal{
		gateway:     gateway,
		provider:    provider,
		amount:      amount,
		referenceID: referenceID,
		stage:       StageLogin,
	}
}

func (m *EwalletModal) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Amount is the total shown on the Confirm step.
func (m *EwalletModal) Amount() int64 { return m.amount }

// ReferenceID is the transaction reference shown on the Confirm step.
func (m *EwalletModal) ReferenceID() string { return m.referenceID }

// FailureMessage is the inline error from the last declined attempt.
func (m *EwalletModal) FailureMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// MobileNumber returns the digits entered so far.
func (m *EwalletModal) MobileNumber() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mobile
}

// EnterMobileNumber replaces the number field with the digits of raw,
// capped at ten. Non-digit characters (including pasted ones) are
// stripped, mirroring keystroke-level rejection.
func (m *EwalletModal) EnterMobileNumber(raw string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageLogin {
		return m.mobile, ErrWrongStage
	}

	var b strings.Builder
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == mobileNumberLength {
			break
		}
	}
	m.mobile = b.String()
	return m.mobile, nil
}

// Advance moves Login to Confirm; it refuses anything but exactly ten
// digits.
func (m *EwalletModal) Advance() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageLogin {
		return ErrWrongStage
	}
	if len(m.mobile) != mobileNumberLength {
		return ErrInvalidMobileNumber
	}
	m.stage = StageConfirm
	return nil
}

// Proceed runs the payment from Confirm. The modal locks in Processing for
// the duration; a concurrent Proceed (double-click) gets ErrProcessing. On
// decline the stage returns to Confirm with an inline failure message; on
// success the modal is done.
func (m *EwalletModal) Proceed(ctx context.Context) (Result, error) {
	m.mu.Lock()
	if m.stage == StageProcessing {
		m.mu.Unlock()
		return Result{}, ErrProcessing
	}
	if m.stage != StageConfirm {
		m.mu.Unlock()
		return Result{}, ErrWrongStage
	}
	m.stage = StageProcessing
	m.failure = ""
	req := Request{
		Amount:       m.amount,
		Provider:     m.provider,
		MobileNumber: m.mobile,
		ReferenceID:  m.referenceID,
	}
	m.mu.Unlock()

	result, err := m.gateway.Process(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.stage = StageConfirm
		m.failure = "payment could not be processed, please try again"
		return Result{}, err
	}
	if !result.Success {
		m.stage = StageConfirm
		m.failure = result.Message
		return result, nil
	}
	m.stage = StageSucceeded
	return result, nil
}

// Cancel dismisses the modal from Login or Confirm. Mid-processing the
// modal cannot be dismissed; the in-flight call is never abandoned.
func (m *EwalletModal) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.stage {
	case StageProcessing:
		return ErrProcessing
	case StageSucceeded, StageCancelled:
		return ErrWrongStage
	}
	m.stage = StageCancelled
	return nil
}
