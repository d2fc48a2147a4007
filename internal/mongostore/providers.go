package mongostore

import (
	"fmt"
	"sync"

	"github.com/rezkam/jobmongo/internal/domain"
)

// QueueProvider maps a set of queue names to the JobQueue implementation
// that serves them. This core ships one default provider; hosts needing
// per-queue routing to distinct backing stores register additional ones.
type QueueProvider interface {
	Queue() *JobQueue
}

type singleQueueProvider struct {
	queue *JobQueue
}

func (p *singleQueueProvider) Queue() *JobQueue { return p.queue }

// QueueProviders resolves a queue-name list to the single provider that
// serves all of them, failing ErrMixedProviders if the names span more
// than one registered provider.
type QueueProviders struct {
	mu       sync.RWMutex
	byQueue  map[string]QueueProvider
	fallback QueueProvider
}

// NewQueueProviders builds an empty registry. Register at least a
// fallback (via RegisterDefault) before resolving any queue name not
// explicitly mapped.
func NewQueueProviders() *QueueProviders {
	return &QueueProviders{byQueue: make(map[string]QueueProvider)}
}

// Register maps queueName to provider.
func (r *QueueProviders) Register(queueName string, provider QueueProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byQueue[queueName] = provider
}

// RegisterDefault sets the provider returned for any queue name with no
// explicit mapping — spec's "one default provider required".
func (r *QueueProviders) RegisterDefault(provider QueueProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the single provider serving every name in queues, or
// ErrMixedProviders if the names resolve to more than one.
func (r *QueueProviders) Resolve(queues []string) (QueueProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var resolved QueueProvider
	for _, q := range queues {
		p, ok := r.byQueue[q]
		if !ok {
			p = r.fallback
		}
		if p == nil {
			return nil, fmt.Errorf("mongostore: no queue provider registered for %q", q)
		}
		if resolved == nil {
			resolved = p
		} else if resolved != p {
			return nil, domain.ErrMixedProviders
		}
	}
	return resolved, nil
}

// NewDefaultQueueProvider wraps jq as a QueueProvider suitable for
// RegisterDefault.
func NewDefaultQueueProvider(jq *JobQueue) QueueProvider {
	return &singleQueueProvider{queue: jq}
}
