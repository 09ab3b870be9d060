package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const messagesPath = "/api/v1/whatsapp_ia/messages"

// Message is one outbound WhatsApp message. Attachment is optional.
type Message struct {
	ChatID         string
	Text           string
	Attachment     []byte
	AttachmentName string
}

type WhatsAppClient struct {
	url       string
	apiKey    string
	sessionID string
	client    *http.Client
}

func NewWhatsAppClient(baseURL, apiKey, sessionID string) *WhatsAppClient {
	return &WhatsAppClient{
		url:       strings.TrimRight(baseURL, "/") + messagesPath,
		apiKey:    apiKey,
		sessionID: sessionID,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendResponse struct {
	ID             json.RawMessage `json:"id"`
	MessageID      string          `json:"message_id"`
	MessageIDCamel string          `json:"messageId"`
}

// Send posts the message as multipart form data and returns the remote
// message id when the API reports one.
func (c *WhatsAppClient) Send(ctx context.Context, msg Message) (string, error) {
	body, contentType, err := encodeMessage(msg)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Session-Ia-Id", c.sessionID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("whatsapp api error: status %d body=%q", resp.StatusCode, string(respBody))
	}

	return remoteID(respBody), nil
}

func encodeMessage(msg Message) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", msg.ChatID); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("message", msg.Text); err != nil {
		return nil, "", err
	}
	if len(msg.Attachment) > 0 {
		name := msg.AttachmentName
		if name == "" {
			name = "attachment.png"
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(msg.Attachment); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// remoteID pulls an id out of the response body. The API is inconsistent
// about the field name and about whether "id" is a number or a string.
func remoteID(body []byte) string {
	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return ""
	}
	if len(sr.ID) > 0 && string(sr.ID) != "null" {
		var s string
		if err := json.Unmarshal(sr.ID, &s); err == nil {
			return s
		}
		return string(sr.ID)
	}
	if sr.MessageID != "" {
		return sr.MessageID
	}
	return sr.MessageIDCamel
}
