// Package wsjson provides helpers for JSON messages.
package wsjson

import (
	"encoding/json"

	"golang.org/x/xerrors"

	"github.com/pwsocket/websocket"
)

// Read receives a text message from s and unmarshals it into v.
// If the peer closes the session instead, the error wraps
// websocket.ErrConnectionClosed.
func Read(s *websocket.Session, v interface{}) error {
	err := read(s, v)
	if err != nil {
		return xerrors.Errorf("failed to read json: %w", err)
	}
	return nil
}

func read(s *websocket.Session, v interface{}) error {
	m, err := s.ReceiveMessage()
	if err != nil {
		return err
	}

	if m.Type != websocket.MessageText {
		return xerrors.Errorf("received %v message: %w", m.Type, websocket.ErrConnectionClosed)
	}

	err = json.Unmarshal([]byte(m.Text), v)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal json: %w", err)
	}
	return nil
}

// Write marshals v and sends it to s as one text message.
func Write(s *websocket.Session, v interface{}) error {
	err := write(s, v)
	if err != nil {
		return xerrors.Errorf("failed to write json: %w", err)
	}
	return nil
}

func write(s *websocket.Session, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal json: %w", err)
	}
	return s.Send(string(b))
}
