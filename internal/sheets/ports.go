// Package sheets defines the outbound ports of the activity mirror.
package sheets

import (
	"context"
	"strings"
	"time"

	"finboard/internal/core"
)

// Activity is one ledger change as mirrored to a spreadsheet row.
type Activity struct {
	At     time.Time
	Change core.ChangeSet
}

// Ports for outbound adapters.
type (
	ActivityWriter interface {
		Append(ctx context.Context, a Activity) (rowRef string, err error)
	}
)

// Header is the first row of an activity sheet.
var Header = []string{"Timestamp", "User", "Resource", "Action", "Count", "IDs"}

// Row renders a as cells in Header order.
func (a Activity) Row() []any {
	return []any{
		a.At.UTC().Format(time.RFC3339),
		a.Change.UserID,
		a.Change.Resource,
		a.Change.Action,
		len(a.Change.IDs),
		strings.Join(a.Change.IDs, ","),
	}
}
