package reconcile

import (
	"context"
	"fmt"
)

// Counter counts the links of the association table.
type Counter interface {
	CountAssociations(ctx context.Context) (int64, error)
}

// Verification compares the association count taken before a run with
// the count after it.
type Verification struct {
	Before  int64
	After   int64
	Created int
	Match   bool
	Message string
}

// Verify recounts the association table and checks that it grew by
// exactly the number of links the run reports as created. A mismatch
// means another writer touched the table during the run.
func Verify(ctx context.Context, counter Counter, before int64, out *Outcome) (*Verification, error) {
	after, err := counter.CountAssociations(ctx)
	if err != nil {
		return nil, err
	}
	v := &Verification{
		Before:  before,
		After:   after,
		Created: out.Created,
	}
	v.Match = after-before == int64(out.Created)
	if !v.Match {
		v.Message = fmt.Sprintf("count mismatch: before=%d, after=%d, created=%d", before, after, out.Created)
	}
	return v, nil
}
