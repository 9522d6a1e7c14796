package governance

import (
	"context"
	"errors"

	"github.com/metisguard/metis/internal/domain"
)

// Fanout broadcasts a violation to several sinks. Every sink is attempted
// even when an earlier one fails; the errors are joined.
type Fanout []Broadcaster

func (f Fanout) Broadcast(ctx context.Context, v *domain.Violation) error {
	var errs []error
	for _, b := range f {
		if err := b.Broadcast(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
