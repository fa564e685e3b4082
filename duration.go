package entrycache

import (
	"fmt"
	"time"
)

// TimeUnit is the granularity a Duration amount is expressed in.
// The zero value is invalid; every Duration must name its unit explicitly.
type TimeUnit int

const (
	unitUnset TimeUnit = iota
	Nanoseconds
	Microseconds
	Milliseconds
	Seconds
	Minutes
	Hours
	Days
)

// minGranularity is the finest unit a Duration may be expressed in.
// Sub-millisecond expiry deadlines are below timer resolution on every
// backend we target, so construction rejects them outright.
const minGranularity = Milliseconds

func (u TimeUnit) String() string {
	switch u {
	case Nanoseconds:
		return "nanoseconds"
	case Microseconds:
		return "microseconds"
	case Milliseconds:
		return "milliseconds"
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	default:
		return "unset"
	}
}

func (u TimeUnit) std() time.Duration {
	switch u {
	case Nanoseconds:
		return time.Nanosecond
	case Microseconds:
		return time.Microsecond
	case Milliseconds:
		return time.Millisecond
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return 24 * time.Hour
	default:
		return 0
	}
}

type durationKind int

const (
	durFinite durationKind = iota
	durEternal
	durZero
)

// Duration is an immutable (unit, amount) pair describing how long an entry
// stays valid after a qualifying operation. Eternal and Zero are the only
// values not expressible as a unit/amount pair: Eternal never expires and
// Zero is already expired.
type Duration struct {
	kind   durationKind
	unit   TimeUnit
	amount int64
}

// Eternal never expires. It is the default expiry for every ExpiryType.
var Eternal = Duration{kind: durEternal}

// Zero is expired from the moment it is applied.
var Zero = Duration{kind: durZero}

// NewDuration builds a finite Duration. The unit must be set and no finer
// than milliseconds, and the amount must be positive; zero elapsed time is
// only expressible through the Zero constant.
func NewDuration(unit TimeUnit, amount int64) (Duration, error) {
	if unit == unitUnset {
		return Duration{}, fmt.Errorf("%w: unit required", ErrInvalidDuration)
	}
	if unit < minGranularity || unit > Days {
		return Duration{}, fmt.Errorf("%w: unit %s below %s granularity", ErrInvalidDuration, unit, minGranularity)
	}
	if amount < 0 {
		return Duration{}, fmt.Errorf("%w: negative amount %d", ErrInvalidDuration, amount)
	}
	if amount == 0 {
		return Duration{}, fmt.Errorf("%w: zero amount, use Zero for already-expired", ErrInvalidDuration)
	}
	return Duration{unit: unit, amount: amount}, nil
}

// MustDuration is NewDuration for package-level declarations; it panics on
// invalid input.
func MustDuration(unit TimeUnit, amount int64) Duration {
	d, err := NewDuration(unit, amount)
	if err != nil {
		panic(err)
	}
	return d
}

// Unit reports the unit the duration was constructed with. Unset for the
// Eternal and Zero constants.
func (d Duration) Unit() TimeUnit { return d.unit }

// Amount reports the amount the duration was constructed with.
func (d Duration) Amount() int64 { return d.amount }

func (d Duration) IsEternal() bool { return d.kind == durEternal }

func (d Duration) IsZero() bool { return d.kind == durZero }

// Elapsed converts the duration to wall-clock time. Eternal and Zero report
// zero; callers must check the kind first.
func (d Duration) Elapsed() time.Duration {
	if d.kind != durFinite {
		return 0
	}
	return time.Duration(d.amount) * d.unit.std()
}

// Equal compares normalized elapsed time, so 2 hours equals 120 minutes
// equals 7200000 milliseconds. Eternal only equals Eternal and Zero only
// equals Zero.
func (d Duration) Equal(other Duration) bool {
	if d.kind != other.kind {
		return false
	}
	if d.kind != durFinite {
		return true
	}
	return d.Elapsed() == other.Elapsed()
}

func (d Duration) String() string {
	switch d.kind {
	case durEternal:
		return "eternal"
	case durZero:
		return "zero"
	default:
		return fmt.Sprintf("%d %s", d.amount, d.unit)
	}
}

// deadline computes the expiry instant for an entry touched at now.
// ok is false for Eternal, meaning no deadline applies.
func (d Duration) deadline(now time.Time) (time.Time, bool) {
	switch d.kind {
	case durEternal:
		return time.Time{}, false
	case durZero:
		return now, true
	default:
		return now.Add(d.Elapsed()), true
	}
}

// ExpiryType selects which Duration applies to an operation.
type ExpiryType int

const (
	// ExpiryCreation applies when an entry is first created.
	ExpiryCreation ExpiryType = iota
	// ExpiryAccess applies when an entry is read.
	ExpiryAccess
	// ExpiryUpdate applies when an existing entry is overwritten.
	ExpiryUpdate
)

// ExpiryTypes enumerates every ExpiryType, in declaration order.
var ExpiryTypes = []ExpiryType{ExpiryCreation, ExpiryAccess, ExpiryUpdate}

func (t ExpiryType) String() string {
	switch t {
	case ExpiryCreation:
		return "creation"
	case ExpiryAccess:
		return "access"
	case ExpiryUpdate:
		return "update"
	default:
		return "unknown"
	}
}
