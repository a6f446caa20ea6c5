package bus

import (
	"context"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// Bus fans module unlock events out to whoever tracks persistent unlocks.
type Bus interface {
	Publish(ctx context.Context, ev types.ModuleUnlock) error
	StartForwarder(ctx context.Context, onEvent func(ev types.ModuleUnlock)) error
	Close() error
}

var _ Bus = (*Local)(nil)
