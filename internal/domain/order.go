package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRequest는 주문 요청 정보를 표현합니다
type OrderRequest struct {
	Pair   string          // 거래 페어 (예: XXBTZEUR)
	Side   OrderSide       // 매수/매도
	Type   OrderType       // 주문 유형 (시장가, 지정가)
	Volume decimal.Decimal // 주문 수량 (BTC)
	Price  decimal.Decimal // 지정가 (Limit 주문 시)
}

// OpenOrder는 거래소에 남아 있는 미체결 주문을 표현합니다.
// 매 사이클마다 거래소에서 새로 조회하며 캐싱하지 않습니다.
type OpenOrder struct {
	OrderID    string          // 거래소 주문 ID (txid)
	Side       OrderSide       // 매수/매도
	LimitPrice decimal.Decimal // 지정가
	Amount     decimal.Decimal // 주문 수량 (BTC)
}

// ClosedOrder는 체결 완료된 주문 이력을 표현합니다
type ClosedOrder struct {
	OrderID   string          // 거래소 주문 ID (txid)
	Pair      string          // 거래 페어
	Side      OrderSide       // 매수/매도
	Price     decimal.Decimal // 체결 가격
	Volume    decimal.Decimal // 체결 수량 (BTC)
	Fee       decimal.Decimal // 수수료 (매수: BTC, 매도: EUR)
	CloseTime time.Time       // 체결 시각
}
