package payment

import (
	"errors"
	"fmt"
)

// Mode is the buyer's payment method.
type Mode string

const (
	ModeCashOnDelivery Mode = "cod"
	ModeEwallet        Mode = "ewallet"
	ModeDebitCredit    Mode = "card"
)

// EwalletProvider identifies the e-wallet behind the Ewallet mode.
type EwalletProvider string

const (
	ProviderGCash   EwalletProvider = "gcash"
	ProviderPayMaya EwalletProvider = "paymaya"
)

// CardType distinguishes debit from credit for the DebitCredit mode.
type CardType string

const (
	CardDebit  CardType = "debit"
	CardCredit CardType = "credit"
)

// Courier is the delivery carrier choice.
type Courier string

const (
	CourierLBC   Courier = "LBC Express"
	CourierJT    Courier = "J&T Express"
	CourierNinja Courier = "Ninja Van"
	CourierFlash Courier = "Flash Express"
	Courier2GO   Courier = "2GO Express"
)

// Couriers lists the supported carriers in display order.
func Couriers() []Courier {
	return []Courier{CourierLBC, CourierJT, CourierNinja, CourierFlash, Courier2GO}
}

var (
	ErrUnknownMode     = errors.New("unknown payment mode")
	ErrUnknownProvider = errors.New("unknown e-wallet provider")
	ErrUnknownCardType = errors.New("unknown card type")
	ErrUnknownCourier  = errors.New("unknown courier")
)

// Selection is the composed payment + delivery choice. Exactly one mode is
// active; EwalletProvider and CardType only matter under their modes.
type Selection struct {
	Mode            Mode            `json:"payment_mode"`
	EwalletProvider EwalletProvider `json:"ewallet_option,omitempty"`
	CardType        CardType        `json:"card_type,omitempty"`
	Courier         Courier         `json:"delivery_mode"`
}

// Validate checks that every chosen field is a known value. Fields not
// relevant under the active mode are ignored.
func (s Selection) Validate() error {
	switch s.Mode {
	case ModeCashOnDelivery:
	case ModeEwallet:
		if s.EwalletProvider != ProviderGCash && s.EwalletProvider != ProviderPayMaya {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, s.EwalletProvider)
		}
	case ModeDebitCredit:
		if s.CardType != CardDebit && s.CardType != CardCredit {
			return fmt.Errorf("%w: %q", ErrUnknownCardType, s.CardType)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, s.Mode)
	}

	for _, c := range Couriers() {
		if s.Courier == c {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCourier, s.Courier)
}
