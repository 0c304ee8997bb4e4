package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/mkh/insurebot/pkg/qa"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the frame exchanged over the websocket. Inbound types are
// "ask", "reset", and "history"; outbound types are "status", "stream",
// "answer", "history", and "error".
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Streaming bool
}

// Server renders the chat transcript over a websocket. Each connection
// gets its own qa session, so chat history lives exactly as long as
// the connection.
type Server struct {
	config     Config
	newSession func() *qa.Engine
}

func New(config Config, newSession func() *qa.Engine) *Server {
	return &Server{
		config:     config,
		newSession: newSession,
	}
}

// Handler returns the HTTP mux with the websocket and health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) Run(addr string) error {
	log.Printf("Starting WebSocket server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := s.newSession()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error reading message: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: "malformed message"})
			continue
		}

		switch msg.Type {
		case "ask":
			s.handleAsk(r.Context(), conn, session, msg.Content)
		case "reset":
			session.Reset()
			s.sendMessage(conn, Message{Type: "status", Content: "history cleared"})
		case "history":
			s.sendMessage(conn, Message{Type: "history", Data: session.History()})
		default:
			s.sendMessage(conn, Message{Type: "error", Content: "unknown message type: " + msg.Type})
		}
	}
}

func (s *Server) handleAsk(ctx context.Context, conn *websocket.Conn, session *qa.Engine, question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		s.sendMessage(conn, Message{Type: "error", Content: "empty question"})
		return
	}

	s.sendMessage(conn, Message{Type: "status", Content: "searching knowledge base"})

	if s.config.Streaming {
		result, err := session.AskStream(ctx, question)
		if err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: err.Error()})
			return
		}

		for chunk := range result.Chunks {
			s.sendMessage(conn, Message{Type: "stream", Content: chunk})
		}

		exchange := <-result.Done
		s.sendMessage(conn, Message{Type: "answer", Content: exchange.Answer, Data: exchange.Sources})
		return
	}

	exchange, err := session.Ask(ctx, question)
	if err != nil {
		s.sendMessage(conn, Message{Type: "error", Content: err.Error()})
		return
	}
	s.sendMessage(conn, Message{Type: "answer", Content: exchange.Answer, Data: exchange.Sources})
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
