package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/giftops-backend/internal/analytics/query"
	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	pkgtypes "github.com/angelmondragon/giftops-backend/pkg/types"
)

// Service provides the finance summary over lifecycle events.
type Service interface {
	Summary(ctx context.Context, actor pkgtypes.Actor, since, until time.Time) (*types.Summary, error)
}

type service struct {
	summaries query.SummaryService
	now       func() time.Time
}

func NewService(summaries query.SummaryService) (Service, error) {
	if summaries == nil {
		return nil, fmt.Errorf("summary service required")
	}
	return &service{summaries: summaries, now: time.Now}, nil
}

// Summary defaults until to now and since to thirty days before until.
func (s *service) Summary(ctx context.Context, actor pkgtypes.Actor, since, until time.Time) (*types.Summary, error) {
	if !actor.Role.In(enums.RoleFinanceManager, enums.RoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not read analytics")
	}
	if until.IsZero() {
		until = s.now().UTC()
	}
	if since.IsZero() {
		since = until.AddDate(0, 0, -30)
	}
	return s.summaries.Summary(ctx, types.SummaryRequest{Since: since, Until: until})
}
