package historybackend

import (
	"context"

	"github.com/agentcore/core/pkg/models"
)

// NopBackend discards everything; ephemeral sessions never call
// LoadHistory with anything to find.
type NopBackend struct{}

var _ Backend = NopBackend{}

func (NopBackend) LoadHistory(ctx context.Context, publicKey string) (UserHistory, error) {
	return UserHistory{}, nil
}

func (NopBackend) SaveMessage(ctx context.Context, sessionID models.SessionID, msg models.ChatMessage) error {
	return nil
}

func (NopBackend) SaveTitle(ctx context.Context, sessionID models.SessionID, title string, isUserTitle bool) error {
	return nil
}
