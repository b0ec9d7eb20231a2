// Package websocket is a small server side implementation of the WebSocket
// protocol that works directly on stream sockets.
//
// A Session owns exactly one connection. It listens, negotiates the HTTP/1.1
// upgrade, then exchanges text messages until either side closes:
//
//	s := websocket.NewSession(websocket.Config{Host: "127.0.0.1", Port: 8080})
//	err := s.Accept(ctx)
//	if err != nil {
//		// handle error
//	}
//	defer s.Close()
//
//	for {
//		msg, err := s.Receive()
//		if err != nil {
//			// errors.Is(err, websocket.ErrConnectionClosed) once the peer is gone
//			return err
//		}
//		err = s.Send("echo: " + msg)
//		...
//	}
//
// Every frame must arrive within a single read of Config.BufferSize bytes.
// Fragmented messages, ping/pong, binary messages, extensions and
// subprotocols are not supported.
//
// See https://tools.ietf.org/html/rfc6455
package websocket
