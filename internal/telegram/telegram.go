// Package telegram is a minimal Bot API client for posting shift updates to a
// group chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultBaseURL = "https://api.telegram.org"

type Client struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

func NewClient(token, chatID string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		chatID:     chatID,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if both the bot token and chat id are set.
func (c *Client) Configured() bool {
	return c.token != "" && c.chatID != ""
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendMessage posts an HTML formatted message to the configured chat.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if !c.Configured() {
		return fmt.Errorf("telegram client not configured: missing bot token or chat id")
	}

	body, err := json.Marshal(sendMessage{ChatID: c.chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

// Chat is a conversation the bot has seen.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Name  string `json:"first_name"`
}

type update struct {
	Message *struct {
		Chat Chat `json:"chat"`
	} `json:"message"`
}

// Chats lists the distinct chats in the bot's pending updates, newest last.
// It is used once during setup to discover the chat id.
func (c *Client) Chats(ctx context.Context) ([]Chat, error) {
	if c.token == "" {
		return nil, fmt.Errorf("telegram client not configured: missing bot token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL("getUpdates"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var updates []update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}

	seen := make(map[int64]bool)
	var chats []Chat
	for _, u := range updates {
		if u.Message == nil || seen[u.Message.Chat.ID] {
			continue
		}
		seen[u.Message.Chat.ID] = true
		chats = append(chats, u.Message.Chat)
	}
	return chats, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 || !out.OK {
		return nil, fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, out.Description)
	}
	return out.Result, nil
}
