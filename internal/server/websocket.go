// internal/server/websocket.go
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
}

// priceUpdate는 웹소켓으로 전송되는 시세 메시지입니다
type priceUpdate struct {
	Type  string `json:"type"`
	Price string `json:"price"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("웹소켓 업그레이드 실패: %v", err)
		return
	}

	client := &wsClient{conn: conn}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	log.Printf("웹소켓 클라이언트 연결: %s", conn.RemoteAddr())

	// 수신 메시지는 사용하지 않지만 연결 종료 감지를 위해 읽습니다
	go func() {
		defer s.removeClient(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastLoop은 주기적으로 현재가를 모든 클라이언트에 전송합니다
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.broadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.hasClients() {
				continue
			}

			price, err := s.engine.GetCurrentPrice(ctx)
			if err != nil {
				log.Printf("시세 브로드캐스트 조회 실패: %v", err)
				continue
			}

			s.broadcast(priceUpdate{
				Type:  "price_update",
				Price: price.StringFixed(2),
			})
		}
	}
}

func (s *Server) broadcast(msg priceUpdate) {
	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		if err := client.conn.WriteJSON(msg); err != nil {
			log.Printf("웹소켓 전송 실패: %v", err)
			s.removeClient(client)
		}
	}
}

func (s *Server) hasClients() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients) > 0
}

func (s *Server) removeClient(client *wsClient) {
	s.mu.Lock()
	_, ok := s.clients[client]
	if ok {
		delete(s.clients, client)
	}
	s.mu.Unlock()

	if ok {
		client.conn.Close()
	}
}

func (s *Server) closeAllClients() {
	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.clients = make(map[*wsClient]struct{})
	s.mu.Unlock()

	for _, client := range clients {
		client.conn.Close()
	}
}
