package memory

import (
	"context"

	"github.com/quaykit/identity-service/internal/application/auth"
	"github.com/quaykit/identity-service/internal/logger"
)

// NoopPublisher stands in for the broker in dev and tests. It logs the event
// and reports success.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishPasswordReset(ctx context.Context, evt auth.PasswordResetEvent) error {
	logger.WithCtx(ctx).Info().
		Str("account_id", evt.AccountID).
		Str("email", evt.Email).
		Str("url", evt.URL).
		Msg("noop publisher: password reset")
	return nil
}
