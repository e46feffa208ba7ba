package reset

import (
	"context"
	"time"
)

// Store is the reset-token persistence boundary.
//
// Contract:
//   - FindValid returns ok=false — never an error — for unknown, used or expired
//     tokens; callers cannot distinguish the three cases.
//   - Issue performs invalidate-then-append as one atomic step: every unused
//     record for the email is marked used and the new record becomes visible only
//     together with those invalidations. A concurrent completion can therefore
//     never observe two live tokens for one email.
//   - All operations on one store serialize against each other (one lock per
//     store; writes replace the whole collection).
type Store interface {
	Append(ctx context.Context, t Token) error
	List(ctx context.Context) ([]Token, error)
	ReplaceAll(ctx context.Context, tokens []Token) error
	FindValid(ctx context.Context, tokenValue string, now time.Time) (Token, bool, error)
	InvalidateAllForEmail(ctx context.Context, email string) error
	MarkUsed(ctx context.Context, tokenValue string) error
	PurgeExpired(ctx context.Context, now time.Time) error
	Issue(ctx context.Context, t Token) error
}
