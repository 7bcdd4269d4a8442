package shared

import "context"

// TransactionManager runs a function inside one atomic persistence scope.
// Repository calls made with the context passed to fn join the scope; if fn
// returns an error every write inside it is rolled back.
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
