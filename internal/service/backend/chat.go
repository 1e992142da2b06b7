package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/zhouzirui/chatsync/internal/model/chat"
)

// FetchSessions returns the conversation summaries of the current user.
func (c *Client) FetchSessions(ctx context.Context) ([]chat.Conversation, error) {
	var resp []chat.SessionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/sessions/", nil, &resp); err != nil {
		return nil, err
	}

	sessions := make([]chat.Conversation, 0, len(resp))
	for _, item := range resp {
		sessions = append(sessions, item.Conversation())
	}
	return sessions, nil
}

// FetchHistory returns the message history with another user, in server order.
func (c *Client) FetchHistory(ctx context.Context, chatID int64) ([]chat.Message, error) {
	var resp []chat.MessageResponse
	path := fmt.Sprintf("/chat/%d/", chatID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(resp))
	for _, item := range resp {
		messages = append(messages, item.Message())
	}
	return messages, nil
}

// SendMessage posts a message to receiver. With an attachment the request is
// multipart/form-data, otherwise JSON.
func (c *Client) SendMessage(ctx context.Context, receiver int64, content string, file *chat.Attachment) (chat.Message, error) {
	var resp chat.MessageResponse

	if file == nil {
		payload := map[string]any{"receiver": receiver, "content": content}
		if err := c.doJSON(ctx, http.MethodPost, "/chat/", payload, &resp); err != nil {
			return chat.Message{}, err
		}
	} else {
		body, contentType, err := multipartMessage(receiver, content, file)
		if err != nil {
			return chat.Message{}, err
		}
		if err := c.do(ctx, http.MethodPost, "/chat/", body, contentType, &resp); err != nil {
			return chat.Message{}, err
		}
	}

	msg := resp.Message()
	msg.IsSender = true
	return msg, nil
}

// MarkChatRead marks every message received from chatID as read.
func (c *Client) MarkChatRead(ctx context.Context, chatID int64) error {
	return c.doJSON(ctx, http.MethodPost, "/chat/mark_read/", map[string]int64{"chat_id": chatID}, nil)
}

// InitializeChat creates the server side of a conversation with chatID.
func (c *Client) InitializeChat(ctx context.Context, chatID int64) error {
	return c.doJSON(ctx, http.MethodPost, "/chat/initialize/", map[string]int64{"chat_id": chatID}, nil)
}

func multipartMessage(receiver int64, content string, file *chat.Attachment) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("receiver", strconv.FormatInt(receiver, 10)); err != nil {
		return nil, "", fmt.Errorf("write receiver field: %w", err)
	}
	if content != "" {
		if err := w.WriteField("content", content); err != nil {
			return nil, "", fmt.Errorf("write content field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
