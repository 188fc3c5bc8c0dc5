// Package httptransport implements the transport boundary against the
// platform API over HTTP. The client is stateless per call: the bearer token
// is attached per request from a token source, so one client can outlive any
// number of token rotations.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"support-console-backend/internal/chat"
	"support-console-backend/internal/dto"
	"support-console-backend/internal/transport"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

func New(baseURL string, token func() string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		token:   token,
	}
}

// NewWithHTTPClient is used by tests and callers that need custom timeouts.
func NewWithHTTPClient(baseURL string, token func() string, httpClient *http.Client) *Client {
	c := New(baseURL, token)
	c.http = httpClient
	return c
}

func (c *Client) ListConversations(ctx context.Context, channel chat.Channel, searchTerm string) ([]chat.Conversation, error) {
	if _, err := chat.ParseChannel(string(channel)); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("channel", string(channel))
	if searchTerm != "" {
		query.Set("search", searchTerm)
	}

	var resp dto.ListConversationsResponse
	if err := c.do(ctx, http.MethodGet, "/conversations", query, nil, &resp); err != nil {
		return nil, err
	}

	conversations := make([]chat.Conversation, 0, len(resp.Conversations))
	for _, record := range resp.Conversations {
		conv, err := chat.ParseConversation(record)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (c *Client) FetchMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var resp dto.ListMessagesResponse
	path := fmt.Sprintf("/conversations/%s/messages", url.PathEscape(conversationID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(resp.Messages))
	for _, record := range resp.Messages {
		msg, err := chat.ParseMessage(record)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (c *Client) CreateConversation(ctx context.Context, params transport.CreateParams) (transport.Created, error) {
	req := dto.CreateConversationRequest{
		Content:             params.InitialContent,
		AttachmentURL:       params.AttachmentURL,
		TargetParticipantID: params.TargetParticipantID,
	}

	var resp dto.CreateConversationResponse
	if err := c.do(ctx, http.MethodPost, "/conversations", nil, req, &resp); err != nil {
		return transport.Created{}, err
	}

	conv, err := chat.ParseConversation(resp.Conversation)
	if err != nil {
		return transport.Created{}, err
	}
	msg, err := chat.ParseMessage(resp.Message)
	if err != nil {
		return transport.Created{}, err
	}
	return transport.Created{Conversation: conv, Message: msg}, nil
}

func (c *Client) SendMessage(ctx context.Context, params transport.SendParams) (chat.Message, error) {
	req := dto.PostMessageRequest{
		SenderID:      params.SenderID,
		SenderType:    string(params.SenderType),
		Content:       params.Content,
		AttachmentURL: params.AttachmentURL,
	}

	var record dto.MessageRecord
	path := fmt.Sprintf("/conversations/%s/messages", url.PathEscape(params.ConversationID))
	if err := c.do(ctx, http.MethodPost, path, nil, req, &record); err != nil {
		return chat.Message{}, err
	}
	return chat.ParseMessage(record)
}

func (c *Client) MarkRead(ctx context.Context, conversationID string, sender chat.SenderType) error {
	req := dto.MarkReadRequest{SenderType: string(sender)}
	path := fmt.Sprintf("/conversations/%s/read", url.PathEscape(conversationID))
	return c.do(ctx, http.MethodPost, path, nil, req, nil)
}

func (c *Client) UnreadCounts(ctx context.Context, scope transport.Scope) (transport.UnreadCounts, error) {
	query := url.Values{}
	if scope.AffiliateID != "" {
		query.Set("affiliateId", scope.AffiliateID)
	}

	var resp dto.UnreadCountsResponse
	if err := c.do(ctx, http.MethodGet, "/unread-counts", query, nil, &resp); err != nil {
		return transport.UnreadCounts{}, err
	}
	return transport.UnreadCounts{
		Guest:     resp.Guest,
		Player:    resp.Player,
		Affiliate: resp.Affiliate,
	}, nil
}

type apiError struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	op := method + " " + path

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &transport.Error{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &transport.Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transport.Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, transport.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = "rejected by server"
		}
		return &chat.ValidationError{Field: "request", Reason: apiErr.Message}
	case resp.StatusCode >= 300:
		return &transport.Error{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &transport.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
