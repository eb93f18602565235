package gate

import "context"

// Policy defines authorization rules for a resource type.
// For list/create, resource may be nil.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}
