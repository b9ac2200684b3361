package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/lewisedginton/opd_consultant_bot/internal/chat"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

const (
	defaultAPIBase = "https://api.telegram.org"

	// One getUpdates call returns at most 100 updates. Anything beyond
	// that is picked up by normal polling after startup.
	backlogFetchLimit = 100
)

// BacklogSource reads the update backlog that accumulated while the bot
// was offline. It calls getUpdates directly because the polling client
// consumes updates as they arrive and offers no way to peek at the
// buffered batch before handling begins.
type BacklogSource struct {
	token   string
	apiBase string
	http    *http.Client
	log     logger.Logger
}

// NewBacklogSource creates a backlog source for the given bot token.
func NewBacklogSource(token string, log logger.Logger) *BacklogSource {
	return &BacklogSource{
		token:   token,
		apiBase: defaultAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type getUpdatesResponse struct {
	OK          bool            `json:"ok"`
	Result      []models.Update `json:"result"`
	Description string          `json:"description"`
}

// Pending returns the buffered updates without consuming them. Updates
// that carry no usable text keep their ID but an empty Text, so the
// caller can still advance past them.
func (s *BacklogSource) Pending(ctx context.Context) ([]chat.InboundMessage, error) {
	params := url.Values{}
	params.Set("timeout", "0")
	params.Set("limit", fmt.Sprintf("%d", backlogFetchLimit))

	updates, err := s.getUpdates(ctx, params)
	if err != nil {
		return nil, err
	}

	messages := make([]chat.InboundMessage, 0, len(updates))
	for i := range updates {
		u := &updates[i]
		msg := chat.InboundMessage{UpdateID: u.ID}
		if u.Message != nil && u.Message.From != nil && !u.Message.From.IsBot {
			msg = inboundFromUpdate(u)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Acknowledge confirms every update up to and including lastUpdateID by
// requesting the next offset.
func (s *BacklogSource) Acknowledge(ctx context.Context, lastUpdateID int64) error {
	params := url.Values{}
	params.Set("timeout", "0")
	params.Set("limit", "1")
	params.Set("offset", fmt.Sprintf("%d", lastUpdateID+1))

	if _, err := s.getUpdates(ctx, params); err != nil {
		return fmt.Errorf("advancing update offset past %d: %w", lastUpdateID, err)
	}
	return nil
}

func (s *BacklogSource) getUpdates(ctx context.Context, params url.Values) ([]models.Update, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", s.apiBase, s.token, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building getUpdates request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling getUpdates: %w", err)
	}
	defer resp.Body.Close()

	var decoded getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding getUpdates response: %w", err)
	}
	if !decoded.OK {
		return nil, fmt.Errorf("getUpdates rejected: %s", decoded.Description)
	}
	return decoded.Result, nil
}
