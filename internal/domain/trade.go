package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade는 봇이 실행한 거래 기록을 표현합니다.
// 생성 후에는 상태 전이(pending → confirmed|failed) 외에 수정되지 않습니다.
type Trade struct {
	ID        string          `json:"id"`        // 거래소 주문 ID
	Side      OrderSide       `json:"type"`      // 매수/매도
	Price     decimal.Decimal `json:"price"`     // 체결 기준 가격 (EUR)
	Amount    decimal.Decimal `json:"amount"`    // 수량 (BTC)
	Timestamp time.Time       `json:"timestamp"` // 실행 시각
	IsManual  bool            `json:"isManual"`  // 수동 주문 여부
	Fee       decimal.Decimal `json:"fee"`       // 수수료 (매수: BTC, 매도: EUR)
	Status    TradeStatus     `json:"status"`    // pending | confirmed | failed
}

// LastOperations는 마지막 매수/매도 기준 가격을 표현합니다.
// 값이 없으면 nil이며, 재시작 시 복원을 위해 저장소에 기록됩니다.
type LastOperations struct {
	LastBuyPrice  *decimal.Decimal `json:"lastBuyPrice"`
	LastSellPrice *decimal.Decimal `json:"lastSellPrice"`
	Timestamp     time.Time        `json:"timestamp"`
}
