package kraken

import "encoding/json"

// 크라켄 API 엔드포인트
const (
	endpointTicker       = "/0/public/Ticker"
	endpointBalance      = "/0/private/Balance"
	endpointOpenOrders   = "/0/private/OpenOrders"
	endpointClosedOrders = "/0/private/ClosedOrders"
	endpointAddOrder     = "/0/private/AddOrder"
	endpointCancelOrder  = "/0/private/CancelOrder"
)

// apiEnvelope는 모든 크라켄 응답의 공통 구조입니다.
// 에러 목록이 비어 있지 않으면 거래소 수준의 실패입니다.
type apiEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// tickerInfo는 Ticker 응답의 페어별 항목입니다
type tickerInfo struct {
	Close []string `json:"c"` // [가격, 수량]
}

// orderDescription은 주문 설명 블록입니다
type orderDescription struct {
	Pair      string `json:"pair"`
	Type      string `json:"type"` // buy | sell
	OrderType string `json:"ordertype"`
	Price     string `json:"price"`
	Order     string `json:"order"`
}

// openOrderInfo는 미체결 주문 항목입니다
type openOrderInfo struct {
	Status string           `json:"status"`
	Descr  orderDescription `json:"descr"`
	Volume string           `json:"vol"`
	Price  string           `json:"price"`
}

// closedOrderInfo는 체결 완료 주문 항목입니다
type closedOrderInfo struct {
	Status    string           `json:"status"`
	Descr     orderDescription `json:"descr"`
	Volume    string           `json:"vol"`
	Price     string           `json:"price"`
	Cost      string           `json:"cost"`
	Fee       string           `json:"fee"`
	CloseTime float64          `json:"closetm"` // 초 단위 유닉스 시각
}

type openOrdersResult struct {
	Open map[string]openOrderInfo `json:"open"`
}

type closedOrdersResult struct {
	Closed map[string]closedOrderInfo `json:"closed"`
}

type addOrderResult struct {
	TxIDs []string         `json:"txid"`
	Descr orderDescription `json:"descr"`
}
