package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/invintel/internal/domain"
)

// CoercionPolicy decides what happens to cells that are not valid numbers or months.
type CoercionPolicy int

const (
	// DefaultZero reads blank and malformed cells as 0 and only counts them.
	DefaultZero CoercionPolicy = iota
	// Strict also reads them as 0 but reports malformed cells as an error.
	Strict
)

func (p CoercionPolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "default_zero"
}

// ParseCoercionPolicy accepts "default_zero" (or "") and "strict".
func ParseCoercionPolicy(s string) (CoercionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default_zero", "defaultzero", "default":
		return DefaultZero, nil
	case "strict":
		return Strict, nil
	default:
		return DefaultZero, fmt.Errorf("unknown coercion policy %q", s)
	}
}

// ErrStrictCoercion is wrapped by errors returned under the Strict policy.
var ErrStrictCoercion = errors.New("malformed cells")

// Coercer converts raw cells and tracks what it had to default.
type Coercer struct {
	Policy      CoercionPolicy
	MaxExamples int
	Now         time.Time

	stats domain.CoercionStats
}

func NewCoercer(policy CoercionPolicy, maxExamples int, now time.Time) *Coercer {
	return &Coercer{Policy: policy, MaxExamples: maxExamples, Now: now}
}

// Float parses a numeric cell. Thousands separators and surrounding spaces are
// stripped; a lone "-" is read as blank. where labels the cell in examples.
func (c *Coercer) Float(raw, where string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		c.stats.Blank++
		return 0
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		c.stats.Invalid++
		c.example(fmt.Sprintf("%s: %q is not a number", where, raw))
		return 0
	}
	return v
}

// Month parses a month label. Unparsed labels fall back to today, as ParseMonth does.
func (c *Coercer) Month(label, where string) (time.Time, bool) {
	t, ok := ParseMonth(label, c.now())
	if !ok {
		c.stats.UnparsedMonths++
		c.example(fmt.Sprintf("%s: %q is not a month", where, label))
	}
	return t, ok
}

// Stats returns the counts gathered so far.
func (c *Coercer) Stats() domain.CoercionStats {
	s := c.stats
	s.Examples = append([]string(nil), c.stats.Examples...)
	return s
}

// Err returns an ErrStrictCoercion-wrapping error when the policy is Strict
// and at least one malformed cell or month was seen. Blank cells never fail.
func (c *Coercer) Err() error {
	if c.Policy != Strict {
		return nil
	}
	if n := c.stats.Invalid + c.stats.UnparsedMonths; n > 0 {
		return fmt.Errorf("%w: %d invalid values, %d unparsed months", ErrStrictCoercion, c.stats.Invalid, c.stats.UnparsedMonths)
	}
	return nil
}

func (c *Coercer) example(msg string) {
	if c.MaxExamples > 0 && len(c.stats.Examples) >= c.MaxExamples {
		return
	}
	c.stats.Examples = append(c.stats.Examples, msg)
}

func (c *Coercer) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}
