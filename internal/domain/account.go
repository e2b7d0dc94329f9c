package domain

import "github.com/shopspring/decimal"

// AccountBalance는 거래소가 반환하는 원시 잔고를 표현합니다
type AccountBalance struct {
	Asset decimal.Decimal // BTC 보유량
	Fiat  decimal.Decimal // EUR 보유량
}

// Balance는 현재가 기준 총 자본이 포함된 잔고 정보를 표현합니다
type Balance struct {
	Asset        decimal.Decimal `json:"btc"`          // BTC 보유량
	Fiat         decimal.Decimal `json:"eur"`          // EUR 보유량
	TotalCapital decimal.Decimal `json:"totalCapital"` // 총 자본 (EUR, 소수점 2자리)
}
