package api

import (
	"context"

	"golang.org/x/sync/errgroup"

	"clarity/internal/conversation"
)

// BootData is everything the TUI needs before first paint.
type BootData struct {
	Conversations []conversation.Conversation
	Messages      []conversation.Message
}

// Fetcher is the read surface Boot needs. *Client satisfies it.
type Fetcher interface {
	Conversations(ctx context.Context) ([]conversation.Conversation, error)
	History(ctx context.Context, conversationID string) ([]conversation.Message, error)
}

// Boot fetches the conversation list and, when a previous thread id is
// known, its history, in parallel. A missing thread (deleted server
// side since the last run) is not fatal; the list alone is enough to
// start.
func Boot(ctx context.Context, c Fetcher, lastConversationID string) (*BootData, error) {
	var data BootData

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		convs, err := c.Conversations(ctx)
		if err != nil {
			return err
		}
		data.Conversations = convs
		return nil
	})
	if lastConversationID != "" {
		g.Go(func() error {
			msgs, err := c.History(ctx, lastConversationID)
			if err != nil {
				if apiErr, ok := err.(*APIError); ok && apiErr.Status == 404 {
					return nil
				}
				return err
			}
			data.Messages = msgs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}
