package gate

import "context"

// Policy defines resource-level rules for a resource type, applied after the
// subject's profile has granted the resource:action permission.
type Policy[U any] interface {
	// Can returns true if user may perform action on resource.
	// For list/create, resource is nil.
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}
