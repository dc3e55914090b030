package errors

import (
	"sync"
	"time"
)

// maxMessages bounds the TUI message log.
const maxMessages = 100

// TUIHandler stores messages for the status line of the interactive editor.
type TUIHandler struct {
	mu       sync.RWMutex
	messages []Message
	onError  func(msg Message)
}

var _ ErrorHandler = (*TUIHandler)(nil)

// Message is one stored message.
type Message struct {
	Text      string
	Type      MessageType
	Timestamp time.Time
}

// MessageType classifies a message.
type MessageType int

const (
	MessageTypeError MessageType = iota
	MessageTypeWarning
	MessageTypeInfo
	MessageTypeSuccess
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeError:
		return "error"
	case MessageTypeWarning:
		return "warning"
	case MessageTypeSuccess:
		return "success"
	default:
		return "info"
	}
}

// NewTUIHandler creates a handler. onMessage, if set, is called for every
// message while the handler lock is held; it must not call back into the handler.
func NewTUIHandler(onMessage func(msg Message)) *TUIHandler {
	return &TUIHandler{onError: onMessage}
}

func (h *TUIHandler) Error(msg string)   { h.add(msg, MessageTypeError) }
func (h *TUIHandler) Warning(msg string) { h.add(msg, MessageTypeWarning) }
func (h *TUIHandler) Info(msg string)    { h.add(msg, MessageTypeInfo) }
func (h *TUIHandler) Success(msg string) { h.add(msg, MessageTypeSuccess) }

func (h *TUIHandler) add(text string, t MessageType) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m := Message{Text: text, Type: t, Timestamp: time.Now()}
	h.messages = append(h.messages, m)
	if len(h.messages) > maxMessages {
		h.messages = append([]Message(nil), h.messages[len(h.messages)-maxMessages:]...)
	}
	if h.onError != nil {
		h.onError(m)
	}
}

// GetLatest returns the most recent message.
func (h *TUIHandler) GetLatest() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Clear drops all messages.
func (h *TUIHandler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

// GetAll returns a copy of the stored messages, oldest first.
func (h *TUIHandler) GetAll() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}
