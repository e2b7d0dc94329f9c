// internal/bot/cycle.go
package bot

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assist-by/halvar/internal/domain"
	"github.com/assist-by/halvar/internal/exchange/kraken"
)

// cycleTask는 스케줄러에 등록되는 매매 사이클 태스크입니다
type cycleTask struct {
	engine *Engine
}

func (t *cycleTask) Execute(ctx context.Context) error {
	t.engine.runCycle(ctx)
	return nil
}

// runCycle은 매매 사이클 한 번을 실행합니다.
// 사이클 중 발생하는 오류는 엔진을 멈추지 않고 로그만 남깁니다.
// 유일한 예외는 자본 하한 미달로, 이 경우 엔진을 정지합니다.
func (e *Engine) runCycle(ctx context.Context) {
	balance, err := e.GetBalance(ctx)
	if err != nil {
		log.Printf("사이클 잔고 조회 실패: %v", err)
		return
	}

	if balance.TotalCapital.LessThan(e.config.MinSecurityCapital) {
		log.Printf("총 자본(%s EUR)이 최소 보안 금액(%s EUR)을 밑돌아 엔진을 정지합니다",
			balance.TotalCapital, e.config.MinSecurityCapital)
		e.notifyInfo("총 자본이 최소 보안 금액을 밑돌아 거래를 중단했습니다")
		e.Stop()
		return
	}

	currentPrice, err := e.exchange.GetTicker(ctx, e.config.Pair)
	if err != nil {
		log.Printf("사이클 시세 조회 실패: %v", err)
		return
	}

	if err := e.checkBuyOpportunity(ctx, currentPrice); err != nil {
		log.Printf("매수 기회 평가 실패: %v", err)
	}

	if err := e.checkSellOpportunity(ctx, balance, currentPrice); err != nil {
		log.Printf("매도 기회 평가 실패: %v", err)
	}
}

// checkBuyOpportunity는 매수 조건을 평가하고 조건이 맞으면 시장가 매수를 실행합니다
func (e *Engine) checkBuyOpportunity(ctx context.Context, currentPrice decimal.Decimal) error {
	if lastSell := e.GetLastSellPrice(); lastSell != nil && currentPrice.GreaterThan(*lastSell) {
		log.Printf("현재가(%s)가 마지막 매도가(%s)보다 높아 매수를 건너뜁니다",
			currentPrice.StringFixed(2), lastSell.StringFixed(2))
		return nil
	}

	openOrders, err := e.exchange.GetOpenOrders(ctx)
	if err != nil {
		return err
	}

	// 현재가보다 비싼 미체결 매수 주문은 의미가 없으므로 취소합니다
	for _, order := range openOrders {
		if order.Side != domain.Buy {
			continue
		}
		if order.LimitPrice.LessThanOrEqual(currentPrice) {
			continue
		}
		if e.exchange.CancelOrder(ctx, order.OrderID) {
			log.Printf("현재가보다 높은 매수 주문 취소 완료 (ID: %s, 지정가: %s)",
				order.OrderID, order.LimitPrice.StringFixed(2))
		}
		time.Sleep(e.cancelDelay)
	}

	balance, err := e.exchange.GetBalance(ctx)
	if err != nil {
		return err
	}

	investment := balance.Fiat.Mul(e.config.InvestmentPercent).Div(decimal.NewFromInt(100))
	amount := investment.Div(currentPrice).Truncate(8)

	if amount.LessThan(e.minLot) {
		log.Printf("매수 가능 수량(%s BTC)이 최소 주문 수량(%s BTC)에 미달합니다",
			amount.StringFixed(8), e.minLot.String())
		return nil
	}

	e.ExecuteBuy(ctx, amount, currentPrice, false)
	return nil
}

// checkSellOpportunity는 매도 조건을 평가하고 조건이 맞으면 보유량 전체를 시장가로 매도합니다
func (e *Engine) checkSellOpportunity(ctx context.Context, balance domain.Balance, currentPrice decimal.Decimal) error {
	if balance.Asset.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	if e.GetLastBuyPrice() == nil {
		return nil
	}

	closedOrders, err := e.exchange.GetClosedOrders(ctx)
	if err != nil {
		return err
	}

	lastBuy := findLastBuy(closedOrders, e.config.Pair)
	if lastBuy == nil {
		return nil
	}

	netProfit := kraken.NetProfit(currentPrice, lastBuy.Price, lastBuy.Volume, lastBuy.Fee, e.config.FeeRate)
	if netProfit.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	openOrders, err := e.exchange.GetOpenOrders(ctx)
	if err != nil {
		return err
	}

	// 걸려 있는 매도 주문이 없거나, 수익이 낮은 주문을 취소했으면 새 주문이 필요합니다
	hasSellOrders := false
	shouldPlace := false
	for _, order := range openOrders {
		if order.Side != domain.Sell {
			continue
		}
		hasSellOrders = true
		existingProfit := kraken.NetProfit(order.LimitPrice, lastBuy.Price, lastBuy.Volume, lastBuy.Fee, e.config.FeeRate)
		if existingProfit.GreaterThanOrEqual(netProfit) {
			// 이미 더 나은 매도 주문은 그대로 둡니다
			continue
		}
		if e.exchange.CancelOrder(ctx, order.OrderID) {
			log.Printf("수익이 낮은 매도 주문 취소 완료 (ID: %s, 지정가: %s)",
				order.OrderID, order.LimitPrice.StringFixed(2))
		}
		shouldPlace = true
		time.Sleep(e.cancelDelay)
	}
	if !hasSellOrders {
		shouldPlace = true
	}

	if !shouldPlace {
		return nil
	}

	fresh, err := e.exchange.GetBalance(ctx)
	if err != nil {
		return err
	}
	if fresh.Asset.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	log.Printf("순수익 %s EUR 예상, 보유량 전체 매도를 실행합니다", netProfit.StringFixed(2))
	e.ExecuteSell(ctx, fresh.Asset, currentPrice, false)
	return nil
}

// loadLastOperations는 체결 내역과 저장소에서 마지막 매수/매도 가격을 복원합니다.
// 체결 내역이 우선이고, 내역에 없는 값만 저장소의 기록으로 보완합니다.
func (e *Engine) loadLastOperations(ctx context.Context) {
	var lastBuy, lastSell *decimal.Decimal

	closedOrders, err := e.exchange.GetClosedOrders(ctx)
	if err != nil {
		log.Printf("체결 내역 조회 실패: %v", err)
	} else {
		for _, order := range closedOrders {
			if order.Pair != e.config.Pair {
				continue
			}
			if order.Side == domain.Buy && lastBuy == nil {
				price := order.Price
				lastBuy = &price
			}
			if order.Side == domain.Sell && lastSell == nil {
				price := order.Price
				lastSell = &price
			}
			if lastBuy != nil && lastSell != nil {
				break
			}
		}
	}

	if e.store != nil && (lastBuy == nil || lastSell == nil) {
		ops, err := e.store.LoadLastOperations()
		if err != nil {
			log.Printf("저장된 거래 가격 조회 실패: %v", err)
		} else {
			if lastBuy == nil {
				lastBuy = ops.LastBuyPrice
			}
			if lastSell == nil {
				lastSell = ops.LastSellPrice
			}
		}
	}

	e.mu.Lock()
	e.lastBuyPrice = lastBuy
	e.lastSellPrice = lastSell
	e.mu.Unlock()

	e.persistLastOperations()

	log.Printf("마지막 거래 가격 복원 완료 (매수: %s, 매도: %s)",
		formatPrice(lastBuy), formatPrice(lastSell))
}

func findLastBuy(orders []domain.ClosedOrder, pair string) *domain.ClosedOrder {
	for i := range orders {
		if orders[i].Pair == pair && orders[i].Side == domain.Buy {
			return &orders[i]
		}
	}
	return nil
}

func formatPrice(price *decimal.Decimal) string {
	if price == nil {
		return "없음"
	}
	return price.StringFixed(2)
}
