package ports

import (
	"context"

	"tracking/internal/core/domain/model/tracking"
)

// LocationLog is the append-only record of accepted samples.
type LocationLog interface {
	// Append stores the sample. Samples are never updated or removed by the relay.
	Append(ctx context.Context, sample tracking.Sample) error
}
