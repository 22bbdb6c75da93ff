package handler

import "strings"

// WebhookEnvelope is the gateway's event envelope. Only the event kinds
// the automation consumes are modeled; everything else is acknowledged
// and dropped.
type WebhookEnvelope struct {
	Event    string      `json:"event"`
	Instance string      `json:"instance"`
	Data     WebhookData `json:"data"`
}

type WebhookData struct {
	Key      MessageKey      `json:"key"`
	PushName string          `json:"pushName"`
	Source   string          `json:"source"`
	Message  *MessageContent `json:"message"`
	State    string          `json:"state"`
}

type MessageKey struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

type MessageContent struct {
	Conversation    string          `json:"conversation"`
	ExtendedText    *ExtendedText   `json:"extendedTextMessage"`
	AudioMessage    *MediaMessage   `json:"audioMessage"`
	ImageMessage    *CaptionedMedia `json:"imageMessage"`
	DocumentMessage *MediaMessage   `json:"documentMessage"`
}

type ExtendedText struct {
	Text string `json:"text"`
}

type MediaMessage struct {
	URL string `json:"url"`
}

type CaptionedMedia struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

const (
	eventMessagesUpsert   = "messages.upsert"
	eventConnectionUpdate = "connection.update"
)

// Phone extracts the bare phone number from the conversation JID.
func (k MessageKey) Phone() string {
	jid := k.RemoteJid
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		jid = jid[:at]
	}
	return jid
}

// IsGroup reports whether the event belongs to a group chat. Group
// conversations are never automated.
func (k MessageKey) IsGroup() bool {
	return strings.HasSuffix(k.RemoteJid, "@g.us")
}

// Text returns the plain text of the message, whichever field carries it.
func (m *MessageContent) Text() string {
	if m == nil {
		return ""
	}
	if m.Conversation != "" {
		return m.Conversation
	}
	if m.ExtendedText != nil {
		return m.ExtendedText.Text
	}
	if m.ImageMessage != nil {
		return m.ImageMessage.Caption
	}
	return ""
}
