package domain

// MessageType tags who authored a chat message.
type MessageType string

const (
	MessageTypeUser MessageType = "USER"
	MessageTypeBot  MessageType = "BOT"
)

// BotSender is the sender name stamped on every reply.
const BotSender = "BANK-BOT"

// ChatMessage is the transport envelope exchanged with chat clients.
// Sender carries the acting account identifier for user messages.
type ChatMessage struct {
	Sender  string      `json:"sender"`
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
}

// NewBotMessage builds a reply envelope.
func NewBotMessage(content string) ChatMessage {
	return ChatMessage{
		Sender:  BotSender,
		Content: content,
		Type:    MessageTypeBot,
	}
}
