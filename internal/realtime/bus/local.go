package bus

import (
	"context"
	"sync"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// Local delivers events to forwarders in this process only. It stands in for
// the Redis bus on single-replica deployments.
type Local struct {
	mu        sync.RWMutex
	listeners map[int]func(types.ModuleUnlock)
	next      int
}

func NewLocal() *Local {
	return &Local{listeners: map[int]func(types.ModuleUnlock){}}
}

func (l *Local) Publish(ctx context.Context, ev types.ModuleUnlock) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, fn := range l.listeners {
		fn(ev)
	}
	return nil
}

// StartForwarder registers onEvent until ctx is done.
func (l *Local) StartForwarder(ctx context.Context, onEvent func(ev types.ModuleUnlock)) error {
	if onEvent == nil {
		return nil
	}
	l.mu.Lock()
	id := l.next
	l.next++
	l.listeners[id] = onEvent
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}()
	return nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	l.listeners = map[int]func(types.ModuleUnlock){}
	l.mu.Unlock()
	return nil
}
