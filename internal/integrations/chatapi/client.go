// Package chatapi talks to the messaging platform: outbound chat messages and
// the bot orchestrator's trigger-signal callback.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Notifier sends one text message into an ongoing conversation.
type Notifier interface {
	SendMessage(ctx context.Context, contactID, text string) error
}

// Signaler posts a resolved flag back to the bot orchestrator so its script
// graph can advance.
type Signaler interface {
	TriggerFlag(ctx context.Context, sessionID, contactID, flag string) error
}

type Client struct {
	messagingBaseURL string
	messagingToken   string
	userID           string
	botBaseURL       string
	botToken         string
	httpc            *http.Client
}

func New(messagingBaseURL, messagingToken, userID, botBaseURL, botToken string) *Client {
	return &Client{
		messagingBaseURL: messagingBaseURL,
		messagingToken:   messagingToken,
		userID:           userID,
		botBaseURL:       botBaseURL,
		botToken:         botToken,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendMessageReq struct {
	Text      string `json:"text"`
	Type      string `json:"type"`
	ContactID string `json:"contactId"`
	UserID    string `json:"userId,omitempty"`
	Origin    string `json:"origin"`
}

func (c *Client) SendMessage(ctx context.Context, contactID, text string) error {
	body, err := json.Marshal(sendMessageReq{
		Text:      text,
		Type:      "chat",
		ContactID: contactID,
		UserID:    c.userID,
		Origin:    "bot",
	})
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagingBaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+c.messagingToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "send message")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("messaging api http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) TriggerFlag(ctx context.Context, sessionID, contactID, flag string) error {
	u := fmt.Sprintf("%s/bots/%s/trigger-signal/%s?flag=%s",
		c.botBaseURL, url.PathEscape(sessionID), url.PathEscape(contactID), url.QueryEscape(flag))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "trigger signal")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("bot trigger http %d", resp.StatusCode)
	}
	return nil
}
