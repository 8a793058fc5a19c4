package wecom

import (
	"encoding/xml"
	"errors"
	"strings"
)

// MsgTypeText is the only message type the gateway relays. Everything else is
// acknowledged and dropped.
const MsgTypeText = "text"

// MessageKind is the tagged variant over supported message kinds.
type MessageKind int

const (
	// KindUnknown covers unsupported message types and text messages with
	// empty content. Callers acknowledge and ignore these.
	KindUnknown MessageKind = iota
	KindText
)

// CallbackEnvelope is the outer XML document of a callback POST. Only the
// Encrypt field matters; the platform sends additional fields the gateway
// does not use.
type CallbackEnvelope struct {
	XMLName xml.Name `xml:"xml"`
	Encrypt string   `xml:"Encrypt"`
}

// ParseEnvelope parses the outer callback body and requires a non-empty
// Encrypt field.
func ParseEnvelope(body []byte) (*CallbackEnvelope, error) {
	var env CallbackEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, errors.Join(ErrInvalidEnvelope, err)
	}
	if env.Encrypt == "" {
		return nil, errors.Join(ErrInvalidEnvelope, errors.New("missing Encrypt field"))
	}
	return &env, nil
}

// IncomingMessage is the decrypted inner XML document of a message callback.
type IncomingMessage struct {
	XMLName    xml.Name `xml:"xml"`
	ToUser     string   `xml:"ToUserName"`
	FromUser   string   `xml:"FromUserName"`
	CreateTime int64    `xml:"CreateTime"`
	MsgType    string   `xml:"MsgType"`
	Content    string   `xml:"Content"`
	MsgID      string   `xml:"MsgId"`
}

// ParseMessage parses the plaintext recovered from an envelope.
func ParseMessage(content string) (*IncomingMessage, error) {
	var msg IncomingMessage
	if err := xml.Unmarshal([]byte(content), &msg); err != nil {
		return nil, errors.Join(ErrInvalidEnvelope, err)
	}
	return &msg, nil
}

// Kind classifies the message. Only text messages with non-empty content are
// relayed; anything else maps to KindUnknown.
func (m *IncomingMessage) Kind() MessageKind {
	if m.MsgType == MsgTypeText && strings.TrimSpace(m.Content) != "" {
		return KindText
	}
	return KindUnknown
}
