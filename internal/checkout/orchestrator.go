package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/refurnish/internal/auth"
	"github.com/example/refurnish/internal/cart"
	"github.com/example/refurnish/internal/payment"
)

var (
	ErrNotAuthenticated     = errors.New("authentication required")
	ErrNotAwaitingEwallet   = errors.New("session is not awaiting e-wallet confirmation")
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
)

// CardValidationError carries field-keyed card errors back to the form.
type CardValidationError struct {
	Fields payment.FieldErrors
}

func (e *CardValidationError) Error() string {
	return "card validation failed"
}

// OrderPlacer is the order-placement collaborator.
type OrderPlacer interface {
	Place(ctx context.Context, token string, draft Draft) (orderID string, err error)
}

// SubmitRequest is one "Buy Now" click.
type SubmitRequest struct {
	ShippingAddress string
	Notes           string
	Selection       payment.Selection
	Card            payment.CardDetails
	IdempotencyKey  string
}

// SessionView is the read-only snapshot handed to callers.
type SessionView struct {
	ID             string        `json:"id"`
	State          State         `json:"state"`
	PaymentMode    payment.Mode  `json:"payment_mode"`
	TransactionID  string        `json:"transaction_id"`
	OrderID        string        `json:"order_id,omitempty"`
	FailureMessage string        `json:"failure_message,omitempty"`
	Totals         Totals        `json:"totals"`
	ModalStage     payment.Stage `json:"modal_stage,omitempty"`
	ModalFailure   string        `json:"modal_failure,omitempty"`
}

type session struct {
	id            string
	userID        string
	state         State
	draft         Draft
	totals        Totals
	lines         []cart.Line
	selection     payment.Selection
	transactionID string
	orderID       string
	failure       string
	modal         *payment.EwalletModal
}

func (s *session) view() SessionView {
	v := SessionView{
		ID:             s.id,
		State:          s.state,
		PaymentMode:    s.selection.Mode,
		TransactionID:  s.transactionID,
		OrderID:        s.orderID,
		FailureMessage: s.failure,
		Totals:         s.totals,
	}
	if s.modal != nil {
		v.ModalStage = s.modal.Stage()
		v.ModalFailure = s.modal.FailureMessage()
	}
	return v
}

// Config wires an Orchestrator. Publisher may be nil; order events are
// then skipped.
type Config struct {
	Cart          *cart.Store
	Placer        OrderPlacer
	Gateway       payment.Gateway
	Repo          Repository
	Publisher     Publisher
	Logger        *slog.Logger
	SubmitTimeout time.Duration
	Now           func() time.Time
}

// Orchestrator gates and dispatches order submission by payment mode. One
// checkout session per user is live at a time; its state machine is
// strictly sequential, and re-entrant submissions are refused by the
// guard, not by trusting disabled buttons.
type Orchestrator struct {
	cart          *cart.Store
	placer        OrderPlacer
	gateway       payment.Gateway
	repo          Repository
	publisher     Publisher
	logger        *slog.Logger
	submitTimeout time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	active   map[string]string // userID -> live session id
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 15 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		cart:          cfg.Cart,
		placer:        cfg.Placer,
		gateway:       cfg.Gateway,
		repo:          cfg.Repo,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
		submitTimeout: cfg.SubmitTimeout,
		now:           cfg.Now,
		sessions:      make(map[string]*session),
		active:        make(map[string]string),
	}
}

// transactionID synthesizes "<prefix>_<base36 timestamp tail>". Uniqueness
// is best-effort, which is fine for the mock gateway; a real
// money-movement path must replace this with a collision-resistant id.
func transactionID(prefix string, t time.Time) string {
	tail := strconv.FormatInt(t.UnixMilli(), 36)
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return prefix + "_" + tail
}

// Begin starts a checkout for the user's selected cart lines.
//
// Cash on delivery and card go straight to submission (card only once the
// details validate); e-wallet opens the mock modal and waits for its
// confirmation before the order is placed.
func (o *Orchestrator) Begin(ctx context.Context, sess auth.Session, req SubmitRequest) (SessionView, error) {
	if sess.UserID == "" || sess.Token == "" {
		return SessionView{}, ErrNotAuthenticated
	}

	if req.IdempotencyKey != "" {
		rec, err := o.repo.FindByIdempotencyKey(ctx, sess.UserID, req.IdempotencyKey)
		if err == nil {
			o.logger.Info("duplicate checkout replayed from idempotency key",
				"user_id", sess.UserID, "session_id", rec.ID, "state", rec.State)
			return viewFromRecord(rec), nil
		}
		if !errors.Is(err, ErrIdempotencyKeyNotFound) {
			return SessionView{}, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	if err := o.reserveUser(sess.UserID); err != nil {
		return SessionView{}, err
	}
	reserved := true
	defer func() {
		if reserved {
			o.releaseUser(sess.UserID)
		}
	}()

	lines, err := o.cart.SelectedLines(ctx, sess)
	if err != nil {
		return SessionView{}, fmt.Errorf("failed to load selected cart lines: %w", err)
	}
	draft, totals, err := NewDraft(lines, req.ShippingAddress, req.Notes)
	if err != nil {
		return SessionView{}, err
	}
	if err := req.Selection.Validate(); err != nil {
		return SessionView{}, err
	}

	if req.Selection.Mode == payment.ModeDebitCredit {
		if errs := req.Card.Validate(o.now()); !errs.Valid() {
			// Back to Idle, nothing touched the network.
			return SessionView{State: StateIdle}, &CardValidationError{Fields: errs}
		}
	}

	s := &session{
		id:        uuid.NewString(),
		userID:    sess.UserID,
		draft:     draft,
		totals:    totals,
		lines:     lines,
		selection: req.Selection,
	}

	switch req.Selection.Mode {
	case payment.ModeEwallet:
		s.transactionID = transactionID("txn", o.now())
		s.state = StateAwaitingEwallet
		s.modal = payment.NewEwalletModal(o.gateway, req.Selection.EwalletProvider, totals.Total, s.transactionID)
	case payment.ModeDebitCredit:
		s.transactionID = transactionID("card", o.now())
		s.state = StateSubmitting
	default:
		// Cash on delivery is treated as immediately settled.
		s.transactionID = transactionID("cod", o.now())
		s.state = StateSubmitting
	}

	if err := o.repo.Create(ctx, &Record{
		ID:             s.id,
		UserID:         s.userID,
		IdempotencyKey: req.IdempotencyKey,
		State:          s.state,
		TransactionID:  s.transactionID,
		Total:          totals.Total,
	}); err != nil {
		return SessionView{}, err
	}

	o.register(s)
	reserved = false // session now owns the user slot

	if s.state == StateAwaitingEwallet {
		return o.snapshot(s), nil
	}
	return o.submit(ctx, sess, s)
}

// LoginEwallet records the wallet's mobile number and advances the modal
// to the confirmation step.
func (o *Orchestrator) LoginEwallet(_ context.Context, sess auth.Session, sessionID, mobileNumber string) (SessionView, error) {
	s, err := o.lookup(sessionID, sess.UserID)
	if err != nil {
		return SessionView{}, err
	}
	if s.modal == nil {
		return SessionView{}, ErrNotAwaitingEwallet
	}
	if _, err := s.modal.EnterMobileNumber(mobileNumber); err != nil {
		return o.snapshot(s), err
	}
	if err := s.modal.Advance(); err != nil {
		return o.snapshot(s), err
	}
	return o.snapshot(s), nil
}

// ProceedEwallet runs the payment from the modal's confirmation step. On
// settlement the order is submitted; on decline the modal stays at
// Confirm and the session keeps waiting.
func (o *Orchestrator) ProceedEwallet(ctx context.Context, sess auth.Session, sessionID string) (SessionView, error) {
	s, err := o.lookup(sessionID, sess.UserID)
	if err != nil {
		return SessionView{}, err
	}

	o.mu.Lock()
	if s.state == StateSubmitting {
		v := s.view()
		o.mu.Unlock()
		return v, ErrSubmissionInProgress
	}
	if s.state != StateAwaitingEwallet {
		v := s.view()
		o.mu.Unlock()
		return v, ErrNotAwaitingEwallet
	}
	o.mu.Unlock()

	result, err := s.modal.Proceed(ctx)
	if err != nil {
		if errors.Is(err, payment.ErrProcessing) || errors.Is(err, payment.ErrWrongStage) {
			return o.snapshot(s), err
		}
		o.logger.Error("e-wallet processing failed", "error", err, "session_id", s.id)
		return o.snapshot(s), err
	}
	if !result.Success {
		o.logger.Info("e-wallet payment declined",
			"session_id", s.id, "transaction_id", result.TransactionID, "message", result.Message)
		return o.snapshot(s), nil
	}

	o.mu.Lock()
	if s.state != StateAwaitingEwallet {
		v := s.view()
		o.mu.Unlock()
		return v, ErrSubmissionInProgress
	}
	s.state = StateSubmitting
	o.mu.Unlock()

	if err := o.repo.UpdateState(ctx, s.id, StateSubmitting, "", ""); err != nil {
		o.logger.Error("failed to persist session state", "error", err, "session_id", s.id)
	}
	return o.submit(ctx, sess, s)
}

// CancelEwallet dismisses the modal and releases the session with no side
// effects on the cart or any backend state.
func (o *Orchestrator) CancelEwallet(ctx context.Context, sess auth.Session, sessionID string) error {
	s, err := o.lookup(sessionID, sess.UserID)
	if err != nil {
		return err
	}
	if s.modal == nil {
		return ErrNotAwaitingEwallet
	}
	if err := s.modal.Cancel(); err != nil {
		return err
	}

	o.finish(s, StateCancelled, "", "cancelled by user")
	if err := o.repo.UpdateState(ctx, s.id, StateCancelled, "", "cancelled by user"); err != nil {
		o.logger.Error("failed to persist session state", "error", err, "session_id", s.id)
	}
	return nil
}

// Session returns the current view, falling back to the persisted record
// once the in-memory session is gone.
func (o *Orchestrator) Session(ctx context.Context, sess auth.Session, sessionID string) (SessionView, error) {
	if s, err := o.lookup(sessionID, sess.UserID); err == nil {
		return o.snapshot(s), nil
	}
	rec, err := o.repo.Find(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if rec.UserID != sess.UserID {
		return SessionView{}, ErrSessionNotFound
	}
	return viewFromRecord(rec), nil
}

// submit places the order under the client-enforced timeout. Success
// evicts exactly the submitted lines; failure leaves the cart untouched
// so the user may retry.
func (o *Orchestrator) submit(ctx context.Context, sess auth.Session, s *session) (SessionView, error) {
	placeCtx, cancel := context.WithTimeout(ctx, o.submitTimeout)
	defer cancel()

	orderID, err := o.placer.Place(placeCtx, sess.Token, s.draft)
	if err != nil {
		o.logger.Error("order placement failed", "error", err, "session_id", s.id, "user_id", s.userID)
		view := o.finish(s, StateFailed, "", "we could not place your order, please try again")
		if uerr := o.repo.UpdateState(ctx, s.id, StateFailed, "", view.FailureMessage); uerr != nil {
			o.logger.Error("failed to persist session state", "error", uerr, "session_id", s.id)
		}
		return view, fmt.Errorf("order placement failed: %w", err)
	}

	if err := o.cart.EvictLines(ctx, sess, s.draft.SelectedItemIDs); err != nil {
		// The order is placed; a straggler cart line is an annoyance, not
		// a failure.
		o.logger.Warn("post-order cart eviction incomplete", "error", err, "session_id", s.id)
	}

	view := o.finish(s, StateSucceeded, orderID, "")
	if err := o.repo.UpdateState(ctx, s.id, StateSucceeded, orderID, ""); err != nil {
		o.logger.Error("failed to persist session state", "error", err, "session_id", s.id)
	}

	o.publishOrderPlaced(ctx, sess, s)
	o.logger.Info("order placed",
		"order_id", orderID, "session_id", s.id, "user_id", s.userID,
		"payment_mode", string(s.selection.Mode), "total", s.totals.Total)
	return view, nil
}

func (o *Orchestrator) publishOrderPlaced(ctx context.Context, sess auth.Session, s *session) {
	if o.publisher == nil {
		return
	}
	items := make([]OrderedItem, len(s.lines))
	for i, l := range s.lines {
		items[i] = OrderedItem{
			ProductID: l.ID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}
	event := OrderPlaced{
		OrderID:       s.orderID,
		UserID:        s.userID,
		Email:         sess.Email,
		Items:         items,
		Subtotal:      s.totals.Subtotal,
		ShippingFee:   s.totals.ShippingFee,
		Total:         s.totals.Total,
		PaymentMode:   s.selection.Mode,
		TransactionID: s.transactionID,
		PlacedAt:      o.now(),
	}
	if err := o.publisher.Publish(ctx, s.userID, event); err != nil {
		o.logger.Error("failed to publish order event", "error", err, "order_id", s.orderID)
	}
}

func (o *Orchestrator) reserveUser(userID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id, ok := o.active[userID]; ok {
		// An empty id is another Begin mid-reservation.
		if _, live := o.sessions[id]; live || id == "" {
			return ErrSubmissionInProgress
		}
	}
	o.active[userID] = ""
	return nil
}

func (o *Orchestrator) releaseUser(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[userID] == "" {
		delete(o.active, userID)
	}
}

func (o *Orchestrator) register(s *session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions[s.id] = s
	o.active[s.userID] = s.id
}

// finish moves the session to a terminal state, frees the user's slot and
// drops the session from memory; later reads are served from the
// repository. The terminal view is taken under the same lock.
func (o *Orchestrator) finish(s *session, state State, orderID, failure string) SessionView {
	o.mu.Lock()
	defer o.mu.Unlock()
	s.state = state
	s.orderID = orderID
	if state == StateSucceeded {
		s.failure = ""
	} else {
		s.failure = failure
	}
	if o.active[s.userID] == s.id {
		delete(o.active, s.userID)
	}
	delete(o.sessions, s.id)
	return s.view()
}

// snapshot reads the session's view under the orchestrator lock.
func (o *Orchestrator) snapshot(s *session) SessionView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return s.view()
}

func (o *Orchestrator) lookup(sessionID, userID string) (*session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func viewFromRecord(rec *Record) SessionView {
	return SessionView{
		ID:             rec.ID,
		State:          rec.State,
		TransactionID:  rec.TransactionID,
		OrderID:        rec.OrderID,
		FailureMessage: rec.FailureMessage,
		Totals:         Totals{Total: rec.Total},
	}
}
