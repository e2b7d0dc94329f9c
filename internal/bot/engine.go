// internal/bot/engine.go
package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assist-by/halvar/internal/domain"
	"github.com/assist-by/halvar/internal/exchange"
	"github.com/assist-by/halvar/internal/exchange/kraken"
	"github.com/assist-by/halvar/internal/ledger"
	"github.com/assist-by/halvar/internal/notification"
	"github.com/assist-by/halvar/internal/scheduler"
)

// StateStorage는 마지막 매수/매도 가격의 영속화를 추상화합니다
type StateStorage interface {
	SaveLastOperations(ops domain.LastOperations) error
	LoadLastOperations() (domain.LastOperations, error)
}

// Config는 거래 엔진의 동작 설정을 정의합니다
type Config struct {
	Pair               string          // 거래 페어
	CycleInterval      time.Duration   // 사이클 실행 간격
	MinSecurityCapital decimal.Decimal // 총 자본 하한 (EUR), 밑돌면 엔진 정지
	InvestmentPercent  decimal.Decimal // 매수 시 투자할 EUR 잔고 비율 (%)
	FeeRate            decimal.Decimal // 거래소 수수료율
	InitialInvestment  decimal.Decimal // 초기 투자금 (수익 계산용)
}

// Engine은 주기적 매매 사이클을 실행하는 거래 엔진입니다.
// 상태는 Stopped | Running 두 가지이며, 초기 상태는 Stopped입니다.
type Engine struct {
	exchange exchange.Exchange
	ledger   *ledger.Ledger
	store    StateStorage
	notifier notification.Notifier
	config   Config

	cancelDelay time.Duration   // 연속 취소 호출 사이 대기 시간
	minLot      decimal.Decimal // 최소 주문 수량 (BTC)

	mu            sync.Mutex
	running       bool
	sched         *scheduler.Scheduler
	lastBuyPrice  *decimal.Decimal
	lastSellPrice *decimal.Decimal
}

// EngineOption은 엔진 생성 옵션을 정의합니다
type EngineOption func(*Engine)

// WithNotifier는 알림 전송기를 설정합니다
func WithNotifier(notifier notification.Notifier) EngineOption {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithCancelDelay는 연속 취소 호출 사이 대기 시간을 설정합니다
func WithCancelDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.cancelDelay = d
	}
}

// WithMinLot은 최소 주문 수량을 설정합니다
func WithMinLot(lot decimal.Decimal) EngineOption {
	return func(e *Engine) {
		e.minLot = lot
	}
}

// NewEngine은 새로운 거래 엔진을 생성합니다
func NewEngine(ex exchange.Exchange, tradeLedger *ledger.Ledger, store StateStorage, config Config, opts ...EngineOption) *Engine {
	e := &Engine{
		exchange:    ex,
		ledger:      tradeLedger,
		store:       store,
		config:      config,
		cancelDelay: 1 * time.Second,
		minLot:      decimal.RequireFromString("0.0001"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Initialize는 거래소 연결을 확인하고 마지막 매수/매도 가격을 복원합니다
func (e *Engine) Initialize(ctx context.Context) error {
	if !e.exchange.VerifyConnection(ctx) {
		return fmt.Errorf("크라켄 API 연결 확인 실패")
	}

	e.loadLastOperations(ctx)
	return nil
}

// Start는 엔진을 실행 상태로 전환하고 주기적 사이클을 시작합니다.
// 이미 실행 중이면 아무 일도 하지 않습니다.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	sched := scheduler.NewScheduler(e.config.CycleInterval, &cycleTask{engine: e})
	e.sched = sched
	e.mu.Unlock()

	go func() {
		if err := sched.Start(context.Background()); err != nil {
			log.Printf("스케줄러 종료: %v", err)
		}
	}()

	log.Println("거래 엔진이 시작되었습니다")
}

// Stop은 엔진을 정지 상태로 전환하고 이후 사이클을 취소합니다.
// 진행 중인 사이클은 끝까지 실행됩니다. 여러 번 호출해도 안전합니다.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	sched := e.sched
	e.sched = nil
	e.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}

	log.Println("거래 엔진이 정지되었습니다")
}

// IsActive는 엔진이 실행 중인지 여부를 반환합니다
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// ExecuteBuy는 시장가 매수를 실행합니다.
// 실패는 호출자에게 전파되지 않고 로그를 남긴 뒤 false를 반환합니다.
func (e *Engine) ExecuteBuy(ctx context.Context, amount, price decimal.Decimal, isManual bool) bool {
	if err := e.executeBuy(ctx, amount, price, isManual); err != nil {
		log.Printf("매수 실행 실패: %v", err)
		e.notifyError(fmt.Errorf("매수 실행 실패: %w", err))
		return false
	}
	return true
}

func (e *Engine) executeBuy(ctx context.Context, amount, price decimal.Decimal, isManual bool) error {
	balance, err := e.GetBalance(ctx)
	if err != nil {
		return err
	}

	// 자본 하한은 수동 매수에도 적용됩니다
	if balance.TotalCapital.LessThan(e.config.MinSecurityCapital) {
		return fmt.Errorf("총 자본(%s)이 최소 보안 금액(%s EUR)을 밑돕니다",
			balance.TotalCapital, e.config.MinSecurityCapital)
	}

	if !isManual {
		if lastSell := e.GetLastSellPrice(); lastSell != nil && price.GreaterThan(*lastSell) {
			return fmt.Errorf("현재가(%s)가 마지막 매도가(%s)보다 높습니다", price, lastSell)
		}
	}

	orderID, err := e.exchange.PlaceOrder(ctx, domain.OrderRequest{
		Pair:   e.config.Pair,
		Side:   domain.Buy,
		Type:   domain.Market,
		Volume: amount,
	})
	if err != nil {
		return err
	}

	e.setLastBuyPrice(price)
	e.persistLastOperations()

	trade := domain.Trade{
		ID:        orderID,
		Side:      domain.Buy,
		Price:     price,
		Amount:    amount,
		Timestamp: time.Now(),
		IsManual:  isManual,
		Fee:       amount.Mul(e.config.FeeRate),
		Status:    domain.TradeConfirmed,
	}
	e.ledger.Record(trade)
	e.notifyTrade(trade)

	log.Printf("매수 주문 실행 완료 (ID: %s, 수량: %s BTC, 기준가: %s EUR)",
		orderID, amount.StringFixed(8), price.StringFixed(2))
	return nil
}

// ExecuteSell은 시장가 매도를 실행합니다.
// 실패는 호출자에게 전파되지 않고 로그를 남긴 뒤 false를 반환합니다.
func (e *Engine) ExecuteSell(ctx context.Context, amount, price decimal.Decimal, isManual bool) bool {
	if err := e.executeSell(ctx, amount, price, isManual); err != nil {
		log.Printf("매도 실행 실패: %v", err)
		e.notifyError(fmt.Errorf("매도 실행 실패: %w", err))
		return false
	}
	return true
}

func (e *Engine) executeSell(ctx context.Context, amount, price decimal.Decimal, isManual bool) error {
	balance, err := e.exchange.GetBalance(ctx)
	if err != nil {
		return err
	}

	if balance.Asset.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("매도할 BTC가 없습니다")
	}

	orderID, err := e.exchange.PlaceOrder(ctx, domain.OrderRequest{
		Pair:   e.config.Pair,
		Side:   domain.Sell,
		Type:   domain.Market,
		Volume: amount,
	})
	if err != nil {
		return err
	}

	e.setLastSellPrice(price)
	e.persistLastOperations()

	trade := domain.Trade{
		ID:        orderID,
		Side:      domain.Sell,
		Price:     price,
		Amount:    amount,
		Timestamp: time.Now(),
		IsManual:  isManual,
		Fee:       amount.Mul(price).Mul(e.config.FeeRate),
		Status:    domain.TradeConfirmed,
	}
	e.ledger.Record(trade)
	e.notifyTrade(trade)

	log.Printf("매도 주문 실행 완료 (ID: %s, 수량: %s BTC, 기준가: %s EUR)",
		orderID, amount.StringFixed(8), price.StringFixed(2))
	return nil
}

// GetBalance는 현재가 기준 총 자본이 포함된 잔고를 조회합니다
func (e *Engine) GetBalance(ctx context.Context) (domain.Balance, error) {
	raw, err := e.exchange.GetBalance(ctx)
	if err != nil {
		return domain.Balance{}, err
	}

	price, err := e.exchange.GetTicker(ctx, e.config.Pair)
	if err != nil {
		return domain.Balance{}, err
	}

	return domain.Balance{
		Asset:        raw.Asset,
		Fiat:         raw.Fiat,
		TotalCapital: kraken.TotalCapital(raw.Asset, raw.Fiat, price),
	}, nil
}

// GetCurrentPrice는 페어의 현재가를 조회합니다
func (e *Engine) GetCurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	return e.exchange.GetTicker(ctx, e.config.Pair)
}

// GetLastBuyPrice는 마지막 매수 가격을 반환합니다. 없으면 nil입니다.
func (e *Engine) GetLastBuyPrice() *decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastBuyPrice == nil {
		return nil
	}
	price := *e.lastBuyPrice
	return &price
}

// GetLastSellPrice는 마지막 매도 가격을 반환합니다. 없으면 nil입니다.
func (e *Engine) GetLastSellPrice() *decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastSellPrice == nil {
		return nil
	}
	price := *e.lastSellPrice
	return &price
}

// GetTrades는 거래 기록의 스냅샷을 반환합니다
func (e *Engine) GetTrades() []domain.Trade {
	return e.ledger.All()
}

// TradingResult는 초기 투자금 대비 현재 자본의 변화를 반환합니다
func (e *Engine) TradingResult(currentCapital decimal.Decimal) decimal.Decimal {
	return kraken.TradingResult(e.config.InitialInvestment, currentCapital)
}

func (e *Engine) setLastBuyPrice(price decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastBuyPrice = &price
}

func (e *Engine) setLastSellPrice(price decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSellPrice = &price
}

// persistLastOperations는 마지막 매수/매도 가격을 저장소에 기록합니다.
// 실패해도 거래 흐름은 막지 않습니다.
func (e *Engine) persistLastOperations() {
	if e.store == nil {
		return
	}

	e.mu.Lock()
	ops := domain.LastOperations{
		LastBuyPrice:  e.lastBuyPrice,
		LastSellPrice: e.lastSellPrice,
		Timestamp:     time.Now(),
	}
	e.mu.Unlock()

	if err := e.store.SaveLastOperations(ops); err != nil {
		log.Printf("마지막 거래 가격 저장 실패: %v", err)
	}
}

func (e *Engine) notifyTrade(trade domain.Trade) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendTrade(trade); err != nil {
		log.Printf("거래 알림 전송 실패: %v", err)
	}
}

func (e *Engine) notifyError(err error) {
	if e.notifier == nil {
		return
	}
	if sendErr := e.notifier.SendError(err); sendErr != nil {
		log.Printf("에러 알림 전송 실패: %v", sendErr)
	}
}

func (e *Engine) notifyInfo(message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendInfo(message); err != nil {
		log.Printf("정보 알림 전송 실패: %v", err)
	}
}
