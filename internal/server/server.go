// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assist-by/halvar/internal/domain"
)

// Engine은 서버가 필요로 하는 거래 엔진 동작을 정의합니다
type Engine interface {
	Initialize(ctx context.Context) error
	Start()
	Stop()
	IsActive() bool
	ExecuteBuy(ctx context.Context, amount, price decimal.Decimal, isManual bool) bool
	ExecuteSell(ctx context.Context, amount, price decimal.Decimal, isManual bool) bool
	GetBalance(ctx context.Context) (domain.Balance, error)
	GetCurrentPrice(ctx context.Context) (decimal.Decimal, error)
	GetTrades() []domain.Trade
	TradingResult(currentCapital decimal.Decimal) decimal.Decimal
}

// Server는 봇 제어용 HTTP/웹소켓 서버입니다
type Server struct {
	engine            Engine
	addr              string
	broadcastInterval time.Duration

	httpServer *http.Server

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// Option은 서버 생성 옵션을 정의합니다
type Option func(*Server)

// WithBroadcastInterval은 웹소켓 시세 전송 간격을 설정합니다
func WithBroadcastInterval(d time.Duration) Option {
	return func(s *Server) {
		s.broadcastInterval = d
	}
}

// NewServer는 새로운 서버를 생성합니다
func NewServer(engine Engine, addr string, opts ...Option) *Server {
	s := &Server{
		engine:            engine,
		addr:              addr,
		broadcastInterval: 2 * time.Second,
		clients:           make(map[*wsClient]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler는 서버의 HTTP 라우팅을 반환합니다
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/initialize", s.handleInitialize)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("POST /api/buy", s.handleBuy)
	mux.HandleFunc("POST /api/sell", s.handleSell)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/price", s.handlePrice)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Run은 서버를 시작하고 종료될 때까지 블록합니다
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go s.broadcastLoop(ctx)

	log.Printf("HTTP 서버 시작: %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown은 서버를 정상 종료합니다
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeAllClients()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Initialize(r.Context()); err != nil {
		log.Printf("초기화 실패: %v", err)
		writeError(w, http.StatusInternalServerError, "초기화에 실패했습니다")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "초기화가 완료되었습니다"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.engine.Start()
	writeJSON(w, http.StatusOK, map[string]string{"message": "봇이 시작되었습니다"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"message": "봇이 정지되었습니다"})
}

type orderRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	req, ok := parseOrderRequest(w, r)
	if !ok {
		return
	}

	if !s.engine.ExecuteBuy(r.Context(), req.Amount, req.Price, true) {
		writeError(w, http.StatusUnprocessableEntity, "매수 실행에 실패했습니다")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "매수가 실행되었습니다"})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	req, ok := parseOrderRequest(w, r)
	if !ok {
		return
	}

	if !s.engine.ExecuteSell(r.Context(), req.Amount, req.Price, true) {
		writeError(w, http.StatusUnprocessableEntity, "매도 실행에 실패했습니다")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "매도가 실행되었습니다"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.engine.GetBalance(r.Context())
	if err != nil {
		log.Printf("잔고 조회 실패: %v", err)
		writeError(w, http.StatusInternalServerError, "잔고 조회에 실패했습니다")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"isRunning": s.engine.IsActive(),
		"trades":    s.engine.GetTrades(),
	}

	// 잔고 조회가 실패해도 상태 응답 자체는 돌려줍니다
	if balance, err := s.engine.GetBalance(r.Context()); err != nil {
		log.Printf("상태 잔고 조회 실패: %v", err)
	} else {
		body["totalCapital"] = balance.TotalCapital
		body["tradingResult"] = s.engine.TradingResult(balance.TotalCapital)
	}

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.engine.GetCurrentPrice(r.Context())
	if err != nil {
		log.Printf("시세 조회 실패: %v", err)
		writeError(w, http.StatusInternalServerError, "시세 조회에 실패했습니다")
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"price": price})
}

func parseOrderRequest(w http.ResponseWriter, r *http.Request) (orderRequest, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "요청 본문 파싱에 실패했습니다")
		return req, false
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		writeError(w, http.StatusBadRequest, "수량은 0보다 커야 합니다")
		return req, false
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		writeError(w, http.StatusBadRequest, "가격은 0보다 커야 합니다")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("응답 인코딩 실패: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
