package preprint

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// DOIPrefix is the registrant prefix shared by every minted identifier
	DOIPrefix = "10.55555/rvu-preprints"
)

var doiPattern = regexp.MustCompile(`^10\.55555/rvu-preprints\.(\d{4})(\d{2})-(\d{4})$`)

// MonthPrefix returns the prefix shared by all identifiers minted in the
// calendar month of now (UTC), including the trailing dash.
func MonthPrefix(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s.%04d%02d-", DOIPrefix, now.Year(), int(now.Month()))
}

// FormatDOI renders the identifier for sequence seq in the month of now.
func FormatDOI(now time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", MonthPrefix(now), seq)
}

// DOIParts is a parsed identifier.
type DOIParts struct {
	Year     int
	Month    time.Month
	Sequence int
}

// ParseDOI splits an identifier produced by FormatDOI.
func ParseDOI(doi string) (DOIParts, error) {
	m := doiPattern.FindStringSubmatch(doi)
	if m == nil {
		return DOIParts{}, fmt.Errorf("invalid doi %q", doi)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	seq, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 {
		return DOIParts{}, fmt.Errorf("invalid doi %q: month %02d out of range", doi, month)
	}
	return DOIParts{Year: year, Month: time.Month(month), Sequence: seq}, nil
}

// Minter derives the next identifier for a month by counting persisted
// records with the month prefix. It keeps no state of its own.
//
// Mint is a read followed by a separate write in the caller; two callers in
// the same month can observe the same count. Uniqueness of the full value is
// left to the store's constraint.
type Minter struct {
	counter DOICounter
}

// NewMinter creates a minter counting through c.
func NewMinter(c DOICounter) *Minter {
	return &Minter{counter: c}
}

// Mint returns the next identifier for the month of now.
func (m *Minter) Mint(ctx context.Context, now time.Time) (string, error) {
	prefix := MonthPrefix(now)
	count, err := m.counter.CountDOIsWithPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("count dois with prefix %s: %w", prefix, err)
	}
	return FormatDOI(now, count+1), nil
}
