package chatapi

// ChatTurn is one entry of the model-facing history.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the POST /api/ai/chat body.
type ChatRequest struct {
	Messages        []ChatTurn `json:"messages"`
	SessionID       string     `json:"session_id"`
	LeadID          *string    `json:"lead_id"` // null until the backend issues one
	Lang            string     `json:"lang"`
	Channel         string     `json:"channel"` // always "web"
	Page            string     `json:"page"`
	Source          string     `json:"source"` // always "ai_widget"
	RequestOperator bool       `json:"request_operator"`
}

// ChatResponse is the POST /api/ai/chat reply. Older backend builds
// answered in "reply", current ones in "text"; Body handles both.
type ChatResponse struct {
	Text    string `json:"text,omitempty"`
	Reply   string `json:"reply,omitempty"`
	LeadID  string `json:"lead_id,omitempty"`
	Handoff *bool  `json:"handoff,omitempty"`
}

// Body returns the assistant text regardless of which field carried it.
func (r *ChatResponse) Body() string {
	if r.Text != "" {
		return r.Text
	}
	return r.Reply
}

// WidgetMessage is one item of the GET /api/widget/messages feed.
type WidgetMessage struct {
	ID        string       `json:"id,omitempty"`
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	CreatedAt int64        `json:"createdAt,omitempty"`
	TS        int64        `json:"ts,omitempty"`
	Channel   string       `json:"channel,omitempty"`
	Meta      *MessageMeta `json:"meta,omitempty"`
}

// MessageMeta carries feed item provenance.
type MessageMeta struct {
	Source string `json:"source,omitempty"`
}

// Timestamp returns the item's timestamp in unix milliseconds from
// whichever field the backend populated.
func (m WidgetMessage) Timestamp() int64 {
	if m.CreatedAt != 0 {
		return m.CreatedAt
	}
	return m.TS
}

// IsAdmin reports whether the item originated from the operator panel.
func (m WidgetMessage) IsAdmin() bool {
	if m.Channel == "admin" {
		return true
	}
	return m.Meta != nil && m.Meta.Source == "admin_panel"
}

// widgetMessagesResponse wraps the poll feed.
type widgetMessagesResponse struct {
	Messages []WidgetMessage `json:"messages"`
}
