package domain

// OrderSide는 주문 방향을 정의합니다
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// String은 OrderSide의 문자열 표현을 반환합니다
func (s OrderSide) String() string {
	return string(s)
}

// OrderType은 주문 유형을 정의합니다
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// TradeStatus는 거래 기록의 상태를 정의합니다
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeConfirmed TradeStatus = "confirmed"
	TradeFailed    TradeStatus = "failed"
)

// DefaultPair는 기본 거래 페어입니다 (크라켄 BTC/EUR 표기)
const DefaultPair = "XXBTZEUR"

// 크라켄 잔고 응답에서 사용하는 자산 키
const (
	AssetKeyBTC = "XXBT"
	AssetKeyEUR = "ZEUR"
)
