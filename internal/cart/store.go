package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/refurnish/internal/auth"
)

// Store is the service's view over a user's persisted cart. All backend
// mutations go through here; the checkout orchestrator's selective
// eviction after a successful order is the only other writer, and it also
// goes through EvictLines.
type Store struct {
	backend   Backend
	cache     Cache
	selection SelectionStore
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]OperationStatus // userID+"/"+lineID
}

func NewStore(backend Backend, cache Cache, selection SelectionStore, logger *slog.Logger) *Store {
	return &Store{
		backend:   backend,
		cache:     cache,
		selection: selection,
		logger:    logger,
		inflight:  make(map[string]OperationStatus),
	}
}

func opKey(userID, lineID string) string {
	return userID + "/" + lineID
}

// begin marks the line as in flight. Returns false when a mutation for the
// same line is already running; the caller drops the operation instead of
// queueing it.
func (s *Store) begin(userID, lineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[opKey(userID, lineID)] == StatusInFlight {
		return false
	}
	s.inflight[opKey(userID, lineID)] = StatusInFlight
	return true
}

// finish clears the in-flight flag. Runs on every exit path.
func (s *Store) finish(userID, lineID string, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if failed {
		s.inflight[opKey(userID, lineID)] = StatusFailed
		return
	}
	delete(s.inflight, opKey(userID, lineID))
}

// Status reports the mutation status of a line, for disabling its controls.
func (s *Store) Status(userID, lineID string) OperationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[opKey(userID, lineID)]
}

// Lines returns the user's cart with selection flags overlaid. Cache
// failures fall through to the backend; they are logged, never surfaced.
func (s *Store) Lines(ctx context.Context, sess auth.Session) ([]Line, error) {
	lines, err := s.cache.Get(ctx, sess.UserID)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cart cache read failed", "error", err, "user_id", sess.UserID)
		}
		lines, err = s.backend.Lines(ctx, sess.Token)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, sess.UserID, lines); err != nil {
			s.logger.Warn("cart cache write failed", "error", err, "user_id", sess.UserID)
		}
	}

	selected, err := s.selection.Selected(ctx, sess.UserID)
	if err != nil {
		s.logger.Warn("selection read failed", "error", err, "user_id", sess.UserID)
		selected = nil
	}

	out := make([]Line, len(lines))
	for i, l := range lines {
		l.Selected = selected[l.ID]
		out[i] = l
	}
	return out, nil
}

// SelectedLines returns only the lines ticked for checkout, in cart order.
func (s *Store) SelectedLines(ctx context.Context, sess auth.Session) ([]Line, error) {
	lines, err := s.Lines(ctx, sess)
	if err != nil {
		return nil, err
	}
	var out []Line
	for _, l := range lines {
		if l.Selected {
			out = append(out, l)
		}
	}
	return out, nil
}

// Increment raises the line's quantity by one, clamped at MaxQuantity. A
// failure leaves local state unchanged; the user must re-trigger.
func (s *Store) Increment(ctx context.Context, sess auth.Session, lineID string) error {
	if !s.begin(sess.UserID, lineID) {
		return ErrMutationInFlight
	}
	failed := true
	defer func() { s.finish(sess.UserID, lineID, failed) }()

	line, err := s.findLine(ctx, sess, lineID)
	if err != nil {
		return err
	}

	next := line.Quantity + 1
	if next > MaxQuantity {
		next = MaxQuantity
	}
	if err := s.backend.UpdateQuantity(ctx, sess.Token, lineID, next); err != nil {
		s.logger.Error("cart increment failed", "error", err, "line_id", lineID)
		return err
	}

	s.invalidate(ctx, sess.UserID)
	failed = false
	return nil
}

// Decrement lowers the line's quantity by one. At quantity 1 the line is
// removed instead, and its selection flag is cleared with it; a
// zero-quantity line is never persisted.
func (s *Store) Decrement(ctx context.Context, sess auth.Session, lineID string) error {
	if !s.begin(sess.UserID, lineID) {
		return ErrMutationInFlight
	}
	failed := true
	defer func() { s.finish(sess.UserID, lineID, failed) }()

	line, err := s.findLine(ctx, sess, lineID)
	if err != nil {
		return err
	}

	if line.Quantity-1 <= 0 {
		if err := s.removeLine(ctx, sess, lineID); err != nil {
			return err
		}
		failed = false
		return nil
	}

	if err := s.backend.UpdateQuantity(ctx, sess.Token, lineID, line.Quantity-1); err != nil {
		s.logger.Error("cart decrement failed", "error", err, "line_id", lineID)
		return err
	}

	s.invalidate(ctx, sess.UserID)
	failed = false
	return nil
}

// Remove deletes the line and clears its selection flag once the removal
// settles.
func (s *Store) Remove(ctx context.Context, sess auth.Session, lineID string) error {
	if !s.begin(sess.UserID, lineID) {
		return ErrMutationInFlight
	}
	failed := true
	defer func() { s.finish(sess.UserID, lineID, failed) }()

	if err := s.removeLine(ctx, sess, lineID); err != nil {
		return err
	}
	failed = false
	return nil
}

func (s *Store) removeLine(ctx context.Context, sess auth.Session, lineID string) error {
	if err := s.backend.Remove(ctx, sess.Token, lineID); err != nil {
		s.logger.Error("cart removal failed", "error", err, "line_id", lineID)
		return err
	}
	if err := s.selection.Clear(ctx, sess.UserID, lineID); err != nil {
		s.logger.Warn("selection clear failed", "error", err, "line_id", lineID)
	}
	s.invalidate(ctx, sess.UserID)
	return nil
}

// ToggleSelection flips the checkout tick for a line. No backend call.
func (s *Store) ToggleSelection(ctx context.Context, sess auth.Session, lineID string) (bool, error) {
	line, err := s.findLine(ctx, sess, lineID)
	if err != nil {
		return false, err
	}

	next := !line.Selected
	if err := s.selection.SetSelected(ctx, sess.UserID, lineID, next); err != nil {
		return false, err
	}
	return next, nil
}

// EvictLines removes exactly the given lines after a successful order,
// leaving the rest of the cart intact. Individual failures are collected
// so one stubborn line doesn't strand the others.
func (s *Store) EvictLines(ctx context.Context, sess auth.Session, lineIDs []string) error {
	var errs []error
	for _, id := range lineIDs {
		if err := s.backend.Remove(ctx, sess.Token, id); err != nil {
			s.logger.Error("post-order eviction failed", "error", err, "line_id", id)
			errs = append(errs, err)
			continue
		}
		if err := s.selection.Clear(ctx, sess.UserID, id); err != nil {
			s.logger.Warn("selection clear failed", "error", err, "line_id", id)
		}
	}
	s.invalidate(ctx, sess.UserID)
	return errors.Join(errs...)
}

func (s *Store) findLine(ctx context.Context, sess auth.Session, lineID string) (Line, error) {
	lines, err := s.Lines(ctx, sess)
	if err != nil {
		return Line{}, err
	}
	for _, l := range lines {
		if l.ID == lineID {
			return l, nil
		}
	}
	return Line{}, ErrLineNotFound
}

func (s *Store) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidation failed", "error", err, "user_id", userID)
	}
}
