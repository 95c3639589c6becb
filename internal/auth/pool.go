package auth

import (
	"context"
	"errors"
	"sync/atomic"

	"valauth/internal/autherr"
)

// Pool spreads handshakes over several senders, typically one transport per
// outbound proxy. All steps of one handshake use the same sender, so the
// provider sees a single origin per session.
type Pool struct {
	authenticators []*Authenticator
	next           atomic.Uint64
}

// NewPool builds one Authenticator per sender with the same options.
func NewPool(senders []Sender, opts ...Option) *Pool {
	p := &Pool{authenticators: make([]*Authenticator, len(senders))}
	for i, s := range senders {
		p.authenticators[i] = New(s, opts...)
	}
	return p
}

// Size returns the number of senders in rotation.
func (p *Pool) Size() int {
	return len(p.authenticators)
}

// Authenticate runs the handshake on the next sender in round-robin order.
// An empty pool fails every call with a ConfigurationError.
func (p *Pool) Authenticate(ctx context.Context, username, password string) (Record, error) {
	if len(p.authenticators) == 0 {
		return Record{}, autherr.New(autherr.ConfigurationError, "pool", errors.New("no senders configured"))
	}
	i := (p.next.Add(1) - 1) % uint64(len(p.authenticators))
	return p.authenticators[i].Authenticate(ctx, username, password)
}
