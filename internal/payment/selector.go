package payment

import (
	"sync"
	"time"
)

// Selector holds the live payment/delivery choice and the card form. Value
// subscribers see every change; validity subscribers are notified
// separately, and only when validity actually flips, so a parent can gate
// submission without re-deriving it.
//
// Card field errors are suppressed until the first submission attempt: the
// form shouldn't scream at the user before they've tried.
type Selector struct {
	now func() time.Time

	mu           sync.Mutex
	selection    Selection
	card         CardDetails
	attempted    bool
	lastValidity bool
	nextSubID    int
	valueSubs    map[int]func(Selection)
	validitySubs map[int]func(bool)
}

func NewSelector(now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	s := &Selector{
		now: now,
		selection: Selection{
			Mode:    ModeCashOnDelivery,
			Courier: CourierLBC,
		},
		valueSubs:    make(map[int]func(Selection)),
		validitySubs: make(map[int]func(bool)),
	}
	s.lastValidity = s.validLocked()
	return s
}

// SubscribeValues registers fn for every selection change. fn runs
// immediately with the current snapshot so the subscriber is never stale.
func (s *Selector) SubscribeValues(fn func(Selection)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.valueSubs[id] = fn
	current := s.selection
	s.mu.Unlock()

	fn(current)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.valueSubs, id)
	}
}

// SubscribeValidity registers fn for validity flips, decoupled from value
// changes.
func (s *Selector) SubscribeValidity(fn func(bool)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.validitySubs[id] = fn
	current := s.lastValidity
	s.mu.Unlock()

	fn(current)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.validitySubs, id)
	}
}

func (s *Selector) SetMode(m Mode) {
	s.update(func() { s.selection.Mode = m })
}

func (s *Selector) SetEwalletProvider(p EwalletProvider) {
	s.update(func() { s.selection.EwalletProvider = p })
}

func (s *Selector) SetCardType(t CardType) {
	s.update(func() { s.selection.CardType = t })
}

func (s *Selector) SetCourier(c Courier) {
	s.update(func() { s.selection.Courier = c })
}

func (s *Selector) SetCard(card CardDetails) {
	s.update(func() { s.card = card })
}

// Selection returns the current snapshot.
func (s *Selector) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Card returns the current card form state.
func (s *Selector) Card() CardDetails {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card
}

// Valid reports whether the selection can be submitted. Card validation
// only applies under DebitCredit; other modes are always valid here.
func (s *Selector) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validLocked()
}

// CardErrors returns field errors for display. Empty before the first
// submission attempt regardless of the card's actual state.
func (s *Selector) CardErrors() FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attempted {
		return FieldErrors{}
	}
	return s.cardErrorsLocked()
}

// MarkAttempted records a submission attempt so inline errors surface.
func (s *Selector) MarkAttempted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempted = true
}

// ClearCard discards the card form and re-arms error suppression, for
// when the checkout that collected it has closed. Card numbers are not
// kept around between purchases.
func (s *Selector) ClearCard() {
	s.update(func() {
		s.card = CardDetails{}
		s.attempted = false
	})
}

func (s *Selector) validLocked() bool {
	if s.selection.Mode != ModeDebitCredit {
		return true
	}
	return s.cardErrorsLocked().Valid()
}

func (s *Selector) cardErrorsLocked() FieldErrors {
	return s.card.Validate(s.now())
}

func (s *Selector) update(apply func()) {
	s.mu.Lock()
	apply()
	snapshot := s.selection
	valueSubs := make([]func(Selection), 0, len(s.valueSubs))
	for _, fn := range s.valueSubs {
		valueSubs = append(valueSubs, fn)
	}

	var validitySubs []func(bool)
	validity := s.validLocked()
	if validity != s.lastValidity {
		s.lastValidity = validity
		validitySubs = make([]func(bool), 0, len(s.validitySubs))
		for _, fn := range s.validitySubs {
			validitySubs = append(validitySubs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range valueSubs {
		fn(snapshot)
	}
	for _, fn := range validitySubs {
		fn(validity)
	}
}
