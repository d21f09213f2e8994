package gmail

import (
	"fmt"
	"sort"

	gmail "google.golang.org/api/gmail/v1"
)

// ListLabels returns the account's custom labels sorted by name. Gmail
// system labels (INBOX, SPAM, CATEGORY_*, ...) are filtered out since the
// labeler only ever suggests user-defined labels.
func (c *Client) ListLabels() ([]Label, error) {
	res, err := c.svc.Labels.List("me").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	var labels []Label
	for _, lb := range res.Labels {
		if lb.Type != "user" {
			continue
		}
		labels = append(labels, Label{
			ID:   lb.Id,
			Name: lb.Name,
			Type: lb.Type,
		})
	}

	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Name < labels[j].Name
	})
	return labels, nil
}

// LabelIDsByName returns a name-to-ID map of the account's custom labels.
func (c *Client) LabelIDsByName() (map[string]string, error) {
	labels, err := c.ListLabels()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(labels))
	for _, lb := range labels {
		byName[lb.Name] = lb.ID
	}
	return byName, nil
}

// EnsureLabel returns the ID of the named label, creating it when it does
// not exist yet. created reports whether a new label was made.
func (c *Client) EnsureLabel(name string) (id string, created bool, err error) {
	byName, err := c.LabelIDsByName()
	if err != nil {
		return "", false, err
	}
	if id, ok := byName[name]; ok {
		return id, false, nil
	}

	lb, err := c.svc.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Do()
	if err != nil {
		return "", false, fmt.Errorf("failed to create label %q: %w", name, err)
	}
	return lb.Id, true, nil
}

// ApplyLabel adds the label to a message.
func (c *Client) ApplyLabel(messageID, labelID string) error {
	_, err := c.svc.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Do()
	if err != nil {
		return fmt.Errorf("failed to apply label to message %s: %w", messageID, err)
	}
	return nil
}
