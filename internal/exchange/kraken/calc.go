package kraken

import "github.com/shopspring/decimal"

// 이 파일의 계산은 모두 순수 함수이며, 통화 반올림 오차를 피하기 위해
// 이진 부동소수점 대신 십진 연산만 사용합니다. 반올림은 마지막에 한 번만 합니다.

// TotalCapital은 자산 평가액과 현금을 합한 총 자본을 EUR 기준으로 계산합니다
func TotalCapital(assetAmount, fiatAmount, price decimal.Decimal) decimal.Decimal {
	return assetAmount.Mul(price).Add(fiatAmount).Round(2)
}

// NetProfit은 현재가에 전량 매도했을 때의 순수익을 계산합니다.
// 매수 수수료(BTC)는 매수가 기준 EUR로 환산하고, 매도 수수료는 매도 금액에 요율을 곱합니다.
func NetProfit(currentPrice, purchasePrice, assetAmount, purchaseFeeAsset, sellFeeRate decimal.Decimal) decimal.Decimal {
	purchaseFeeFiat := purchaseFeeAsset.Mul(purchasePrice)
	sellFeeFiat := currentPrice.Mul(assetAmount).Mul(sellFeeRate)

	revenue := currentPrice.Mul(assetAmount)
	cost := purchasePrice.Mul(assetAmount)
	totalFees := purchaseFeeFiat.Add(sellFeeFiat)

	return revenue.Sub(cost).Sub(totalFees).Round(2)
}

// TradingResult는 초기 자본 대비 현재 자본의 변화를 계산합니다
func TradingResult(initialCapital, currentCapital decimal.Decimal) decimal.Decimal {
	return currentCapital.Sub(initialCapital).Round(2)
}
