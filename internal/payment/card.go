package payment

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CardDetails is the ephemeral card form state. It never leaves the
// process: the order submission carries only the synthesized transaction
// reference.
type CardDetails struct {
	HolderName string
	Number     string
	Expiry     string // MM/YY
	CVC        string
}

// FieldErrors maps a card field to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

var (
	nonDigits  = regexp.MustCompile(`\D`)
	expiryForm = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	cvcForm    = regexp.MustCompile(`^\d{3,4}$`)
)

// Validate checks every field and returns the errors keyed by field name.
// Same month/year as now is still valid.
func (d CardDetails) Validate(now time.Time) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(d.HolderName) == "" {
		errs["holder_name"] = "cardholder name is required"
	}

	digits := nonDigits.ReplaceAllString(d.Number, "")
	if len(digits) < 13 || len(digits) > 19 {
		errs["number"] = "card number must be 13-19 digits"
	} else if !luhnValid(digits) {
		errs["number"] = "invalid card number"
	}

	if m := expiryForm.FindStringSubmatch(d.Expiry); m == nil {
		errs["expiry"] = "expiry must be MM/YY"
	} else {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			errs["expiry"] = "invalid month"
		} else if expired(month, 2000+year, now) {
			errs["expiry"] = "card is expired"
		}
	}

	if !cvcForm.MatchString(d.CVC) {
		errs["cvc"] = "CVC must be 3-4 digits"
	}

	return errs
}

// expired reports whether (month, year) is strictly before now's pair.
func expired(month, year int, now time.Time) bool {
	if year != now.Year() {
		return year < now.Year()
	}
	return month < int(now.Month())
}

// luhnValid runs the mod-10 checksum over a digits-only string.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
