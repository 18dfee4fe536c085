package riva

import "encoding/json"

// MsgType names the JSON-tagged RIVA wire message kinds.
type MsgType string

const (
	MsgSessionState MsgType = "SessionState"
	MsgLoginResult MsgType = "LoginResult"
	MsgPress MsgType = "Press"
	MsgMove MsgType = "Move"
	MsgRelease MsgType = "Release"
	MsgCancelInput MsgType = "CancelInput"
	MsgSetVisState MsgType = "SetVisState"
	MsgSetSrvFlags MsgType = "SetServerFlags"
	MsgLogMsg MsgType = "LogMsg"
	MsgPing MsgType = "Ping"
	MsgGraphics MsgType = "Graphics"
	MsgImageChunk MsgType = "ImageChunk"
)

// Envelope wraps every inbound/outbound message with its type tag, the
// convention this codebase's JSON wire messages use throughout.
type Envelope struct {
	Type MsgType `json:"Type"`
}

// SessionStateMsg is the client's login/handshake body.
type SessionStateMsg struct {
	Type MsgType `json:"Type"`
	ImageManifest map[string]string `json:"ImageManifest"`
	CachingEnabled bool `json:"CachingEnabled"`
	LogGUIEvents bool `json:"LogGUIEvents"`
	LogInMsgs bool `json:"LogInMsgs"`
	InBackgroundTab bool `json:"InBackgroundTab"`
}

// LoginResultMsg reports login success/failure to the client.
type LoginResultMsg struct {
	Type MsgType `json:"Type"`
	Ok bool `json:"Ok"`
	Message string `json:"Message,omitempty"`
}

// PointerMsg carries Press/Move/Release coordinates.
type PointerMsg struct {
	Type MsgType `json:"Type"`
	X int `json:"X"`
	Y int `json:"Y"`
}

// SetVisStateMsg reports the client tab's visibility.
type SetVisStateMsg struct {
	Type MsgType `json:"Type"`
	Visible bool `json:"Visible"`
}

// ImageChunkMsg is one chunk of the chunked image-transfer protocol
//. The first chunk of a transfer carries Path,
// Serial, TotalSize, Width, Height and PNG; later chunks carry only Path,
// First, Last and Data, but all fields round-trip through the same struct
// for simplicity.
type ImageChunkMsg struct {
	Type MsgType `json:"Type"`
	Path string `json:"Path"`
	Serial string `json:"Serial,omitempty"`
	TotalSize int `json:"TotalSize,omitempty"`
	Width int `json:"Width,omitempty"`
	Height int `json:"Height,omitempty"`
	PNG bool `json:"PNG,omitempty"`
	First bool `json:"First"`
	Last bool `json:"Last"`
	Data string `json:"Data,omitempty"`
}

// GraphicsMsg is one recorded graphics primitive, serialised for the
// session's egress queue.
type GraphicsMsg struct {
	Type MsgType `json:"Type"`
	Op string `json:"Op"`
	Args json.RawMessage `json:"Args,omitempty"`
}

// DecodeType reads just the Type discriminator from an inbound message so
// the dispatcher can pick the concrete struct to unmarshal into.
func DecodeType(raw []byte) (MsgType, error) {
	var env Envelope
	if err:= json.Unmarshal(raw, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}
