// Package payment holds the gateway capability and the gateways built in to
// the service.
package payment

import (
	"context"
	"sort"
	"strings"
	"sync"

	"storecheckout/internal/domain"
)

type Gateway interface {
	ID() string
	IsEnabled() bool
	ProcessPayment(ctx context.Context, pc domain.PaymentContext) (domain.PaymentResult, error)
}

// DeclineError is returned by a gateway whose message may be shown to the
// shopper as is.
type DeclineError struct {
	Message string
}

func (e *DeclineError) Error() string { return e.Message }

type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// Register adds g, replacing any gateway with the same id.
func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.ID()] = g
}

// Lookup returns the gateway for id if it is registered and enabled.
func (r *Registry) Lookup(id string) (Gateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[id]
	if !ok || !g.IsEnabled() {
		return nil, false
	}
	return g, true
}

// Enabled lists the ids of enabled gateways in name order.
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.gateways))
	for id, g := range r.gateways {
		if g.IsEnabled() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SanitizeData normalises gateway form data: keys are lowercased and
// stripped to [a-z0-9_-], values are trimmed. Empty keys are dropped.
func SanitizeData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		key := sanitizeKey(k)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

func sanitizeKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
