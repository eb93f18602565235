package policy

import (
	"context"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/gate"
)

// Ownable is implemented by models that have an owning user.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows an action only on resources the principal owns.
type OwnershipPolicy struct{}

// NewOwnershipPolicy creates a new ownership policy.
func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can checks ownership. List/create carry no resource and are allowed for any principal.
// Resources that are not Ownable are denied.
func (p *OwnershipPolicy) Can(_ context.Context, user auth.Principal, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == user.UserID
}

// QuotePolicy is ownership plus administrative actions: only admins may reset a quote,
// and admins may act on any quote.
type QuotePolicy struct {
	owner *OwnershipPolicy
}

func NewQuotePolicy() *QuotePolicy {
	return &QuotePolicy{owner: NewOwnershipPolicy()}
}

func (p *QuotePolicy) Can(ctx context.Context, user auth.Principal, action gate.Action, resource any) bool {
	if user.Admin {
		return true
	}
	if action == gate.ActionReset {
		return false
	}
	return p.owner.Can(ctx, user, action, resource)
}

// NewGate registers the policies for every resource type served by the API.
func NewGate() *gate.Gate[auth.Principal] {
	g := gate.NewGate[auth.Principal]()
	g.Register("draft", NewOwnershipPolicy())
	g.Register("quote", NewQuotePolicy())
	return g
}
