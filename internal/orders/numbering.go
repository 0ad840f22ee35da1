package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

const orderNumberPrefix = "ORD"

// FormatOrderNumber renders ORD-<year>-<seq>, padding seq to three digits.
// Sequences past 999 simply grow wider.
func FormatOrderNumber(year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", orderNumberPrefix, year, seq)
}

// ParseOrderNumber splits an order number back into year and sequence.
func ParseOrderNumber(number string) (int, int64, error) {
	parts := strings.Split(strings.TrimSpace(number), "-")
	if len(parts) != 3 || parts[0] != orderNumberPrefix {
		return 0, 0, fmt.Errorf("malformed order number %q", number)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed order number %q: %w", number, err)
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq <= 0 {
		return 0, 0, fmt.Errorf("malformed order number %q", number)
	}
	return year, seq, nil
}

// nextOrderNumber draws the next value from the per-year counter. It must run
// on the transaction that inserts the order so an aborted create releases
// nothing but its own increment.
func nextOrderNumber(ctx context.Context, repo Repository, now time.Time) (string, error) {
	year := now.Year()
	seq, err := repo.NextSequence(ctx, year)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}
	return FormatOrderNumber(year, seq), nil
}
