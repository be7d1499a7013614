package protocol

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeAuth is sent by client immediately after connection to authenticate
	TypeAuth MessageType = "auth"

	// TypeKey notifies subscribers of an emulated key transition
	TypeKey MessageType = "key"

	// TypeMouseMove notifies subscribers of emulated pointer motion
	TypeMouseMove MessageType = "mouse_move"

	// TypeMouseButtons notifies subscribers of an emulated button mask change
	TypeMouseButtons MessageType = "mouse_buttons"

	// TypeMouseWheel notifies subscribers of emulated wheel motion
	TypeMouseWheel MessageType = "mouse_wheel"

	// TypeCapture notifies subscribers that pointer capture was toggled
	TypeCapture MessageType = "capture"

	// TypeSyncRequest is sent by client to request full config
	TypeSyncRequest MessageType = "sync_req"

	// TypeSyncResponse is sent by server with full config
	TypeSyncResponse MessageType = "sync_resp"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// AuthPayload is the payload for TypeAuth
type AuthPayload struct {
	Token        string `json:"token"`
	AgentName    string `json:"agent_name"`
	AgentVersion string `json:"agent_version"`
}

// KeyPayload is the payload for TypeKey. Scancode is the canonical 9-bit
// code after remapping.
type KeyPayload struct {
	Pressed   bool   `json:"pressed"`
	Scancode  uint16 `json:"scancode"`
	Timestamp int64  `json:"timestamp"`
}

// MouseMovePayload is the payload for TypeMouseMove
type MouseMovePayload struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// MouseButtonsPayload is the payload for TypeMouseButtons. Mask uses one
// bit per button, left button in bit 0 through button 5 in bit 4.
type MouseButtonsPayload struct {
	Mask uint8 `json:"mask"`
}

// MouseWheelPayload is the payload for TypeMouseWheel. Delta is in whole
// wheel notches, positive away from the user.
type MouseWheelPayload struct {
	Delta int `json:"delta"`
}

// CapturePayload is the payload for TypeCapture
type CapturePayload struct {
	Active bool `json:"active"`
}
