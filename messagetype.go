package websocket

// MessageType represents the kind of message returned by ReceiveMessage.
type MessageType int

// MessageType constants.
const (
	// MessageText is a UTF-8 encoded text message.
	MessageText MessageType = iota + 1
	// MessageClose means the peer sent a close frame and the session
	// has been closed.
	MessageClose
)

func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageClose:
		return "close"
	}
	return "unknown"
}

// Message is a message received on a Session.
type Message struct {
	Type MessageType
	// Text is empty for MessageClose.
	Text string
}
