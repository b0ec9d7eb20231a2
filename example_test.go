package websocket_test

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/pwsocket/websocket"
)

func ExampleSession_Accept() {
	// This accepts a single client on port 8080 and answers each message
	// until the client goes away.
	s := websocket.NewSession(websocket.Config{
		Port:          8080,
		AcceptTimeout: time.Minute,
	})
	defer s.Close()

	err := s.Accept(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	for {
		msg, err := s.Receive()
		if err != nil {
			log.Println(err)
			return
		}
		if s.State() != websocket.StateOpen {
			return
		}

		err = s.Send("Hello client!")
		if err != nil {
			log.Println(err)
			return
		}
		log.Printf("received %q", msg)
	}
}

func ExampleUpgrade() {
	// This handler upgrades the request and sends a single message.
	fn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := websocket.Upgrade(w, r, websocket.Config{})
		if err != nil {
			log.Println(err)
			return
		}
		defer s.Close()

		err = s.Send("hi")
		if err != nil {
			log.Println(err)
		}
	})

	err := http.ListenAndServe("localhost:8080", fn)
	log.Fatal(err)
}

func ExampleDecodeFrame() {
	// The masked "Hello" frame from RFC 6455.
	b := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}

	f, err := websocket.DecodeFrame(b)
	if err != nil {
		log.Fatal(err)
	}
	text, err := f.Text()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(f.Opcode, f.PayloadLength, text)
	fmt.Printf("% x\n", websocket.EncodeFrame(websocket.OpText, []byte(text)))
	// Output:
	// text 5 Hello
	// 81 05 48 65 6c 6c 6f
}

// This example accepts a session on a loopback listener, replies to every
// message from OnReceive and echoes it, then closes once the client does.
func Example_echo() {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	defer l.Close()

	s := websocket.NewSession(websocket.Config{
		ReadTimeout: time.Second * 10,
		OnReceive: func(s *websocket.Session, msg string) {
			s.Send("Server received: " + msg)
		},
	})
	defer s.Close()

	errc := make(chan error, 1)
	go func() {
		err := s.AcceptListener(context.Background(), l)
		if err != nil {
			errc <- err
			return
		}
		for {
			m, err := s.ReceiveMessage()
			if err != nil {
				errc <- err
				return
			}
			if m.Type == websocket.MessageClose {
				continue
			}
			err = s.Send(m.Text)
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	c, _, err := gorilla.DefaultDialer.Dial("ws://"+l.Addr().String()+"/echo", nil)
	if err != nil {
		log.Fatalf("failed to dial: %v", err)
	}
	defer c.Close()

	for _, msg := range []string{"hello", "world"} {
		err = c.WriteMessage(gorilla.TextMessage, []byte(msg))
		if err != nil {
			log.Fatalf("failed to write: %v", err)
		}
		for i := 0; i < 2; i++ {
			_, b, err := c.ReadMessage()
			if err != nil {
				log.Fatalf("failed to read: %v", err)
			}
			fmt.Println(string(b))
		}
	}

	err = c.WriteControl(gorilla.CloseMessage, nil, time.Now().Add(time.Second))
	if err != nil {
		log.Fatalf("failed to close: %v", err)
	}
	fmt.Println(<-errc)
	// Output:
	// Server received: hello
	// hello
	// Server received: world
	// world
	// websocket connection was closed
}
