package gmail

import (
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

var metadataHeaders = []string{"From", "To", "Subject", "Date"}

// GetUnreadMessages fetches up to maxResults unread messages as slim
// metadata views, newest first.
func (c *Client) GetUnreadMessages(maxResults int64) ([]Message, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	res, err := c.svc.Messages.List("me").Q("is:unread").MaxResults(maxResults).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}

	messages := make([]Message, 0, len(res.Messages))
	for _, ref := range res.Messages {
		msg, err := c.GetMessageByID(ref.Id)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// GetMessageByID fetches a single message as a slim metadata view.
func (c *Client) GetMessageByID(messageID string) (Message, error) {
	req := c.svc.Messages.Get("me", messageID).Format("metadata")
	for _, h := range metadataHeaders {
		req = req.MetadataHeaders(h)
	}

	full, err := req.Do()
	if err != nil {
		return Message{}, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return slimMessage(full), nil
}

func slimMessage(m *gmail.Message) Message {
	msg := Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		LabelIDs: m.LabelIds,
	}
	if m.Payload == nil {
		return msg
	}
	for _, h := range m.Payload.Headers {
		switch h.Name {
		case "From":
			msg.From = h.Value
		case "To":
			msg.To = h.Value
		case "Subject":
			msg.Subject = h.Value
		case "Date":
			msg.Date = h.Value
		}
	}
	return msg
}
