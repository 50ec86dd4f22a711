package port

import (
	"context"
	"io"
	"time"

	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/internal/domain/event"
)

// MessageSender delivers a plain text message to the review chat
type MessageSender interface {
	SendText(ctx context.Context, content string) error
}

// EventPublisher forwards trip events to the message broker
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event) error
}

// CityCache holds recently read cities. Misses and backend failures both
// report ok=false so callers fall back to the repository.
type CityCache interface {
	Get(ctx context.Context, id int64) (*entity.City, bool)
	Set(ctx context.Context, city *entity.City)
	GetAll(ctx context.Context) ([]*entity.City, bool)
	SetAll(ctx context.Context, cities []*entity.City)
	Invalidate(ctx context.Context, id int64)
}

// PasswordHasher hashes and verifies account passwords
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// TokenIssuer issues and parses access tokens
type TokenIssuer interface {
	Issue(user *entity.User) (token string, expiresAt time.Time, err error)
	Parse(token string) (access.Identity, error)
}

// TripReportWriter renders a trip listing as a downloadable document
type TripReportWriter interface {
	WriteTrips(w io.Writer, trips []*entity.TripRequestView) error
	ContentType() string
	FileExtension() string
}
