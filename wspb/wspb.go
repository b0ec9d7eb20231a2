// Package wspb provides helpers for protobuf messages.
//
// Sessions only carry text, so messages travel in their canonical JSON
// encoding.
package wspb

import (
	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	"golang.org/x/xerrors"

	"github.com/pwsocket/websocket"
)

// Read receives a text message from s and unmarshals it into v.
func Read(s *websocket.Session, v proto.Message) error {
	err := read(s, v)
	if err != nil {
		return xerrors.Errorf("failed to read protobuf: %w", err)
	}
	return nil
}

func read(s *websocket.Session, v proto.Message) error {
	m, err := s.ReceiveMessage()
	if err != nil {
		return err
	}

	if m.Type != websocket.MessageText {
		return xerrors.Errorf("received %v message: %w", m.Type, websocket.ErrConnectionClosed)
	}

	err = jsonpb.UnmarshalString(m.Text, v)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal protobuf: %w", err)
	}
	return nil
}

// Write marshals v and sends it to s as one text message.
func Write(s *websocket.Session, v proto.Message) error {
	err := write(s, v)
	if err != nil {
		return xerrors.Errorf("failed to write protobuf: %w", err)
	}
	return nil
}

func write(s *websocket.Session, v proto.Message) error {
	var m jsonpb.Marshaler
	text, err := m.MarshalToString(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal protobuf: %w", err)
	}
	return s.Send(text)
}
