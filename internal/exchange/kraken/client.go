// internal/exchange/kraken/client.go
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assist-by/halvar/internal/domain"
)

// Client는 크라켄 API 클라이언트를 구현합니다.
// 모든 개인 요청은 내부 FIFO 큐를 거치며, 공개 요청은 레이트 리미터만 공유합니다.
type Client struct {
	apiKey     string
	privateKey string
	baseURL    string
	pair       string
	httpClient *http.Client

	nonce   *NonceManager
	limiter *RateLimiter
	queue   *PrivateQueue

	cancelDelay time.Duration // 취소 요청 후 확인 대기 시간
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithPair는 기본 거래 페어를 설정합니다
func WithPair(pair string) ClientOption {
	return func(c *Client) {
		c.pair = pair
	}
}

// WithRateLimiter는 공유 레이트 리미터를 교체합니다
func WithRateLimiter(limiter *RateLimiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithQueue는 개인 요청 큐를 교체합니다
func WithQueue(queue *PrivateQueue) ClientOption {
	return func(c *Client) {
		c.queue = queue
	}
}

// WithCancelDelay는 주문 취소 후 대기 시간을 설정합니다
func WithCancelDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.cancelDelay = d
	}
}

// NewClient는 새로운 크라켄 API 클라이언트를 생성합니다
func NewClient(apiKey, privateKey string, nonce *NonceManager, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:      apiKey,
		privateKey:  privateKey,
		baseURL:     "https://api.kraken.com",
		pair:        domain.DefaultPair,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		nonce:       nonce,
		limiter:     NewRateLimiter(1 * time.Second),
		queue:       NewPrivateQueue(),
		cancelDelay: 500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// doPublic은 공개 엔드포인트에 요청을 보내고 result 블록을 반환합니다
func (c *Client) doPublic(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if len(params) > 0 {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.send(req, endpoint)
}

// doPrivate은 개인 엔드포인트 요청을 큐에 넣고 결과를 기다립니다.
// 논스는 디스패치 시점에 뽑으므로 논스 순서가 디스패치 순서와 일치합니다.
func (c *Client) doPrivate(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	body, err := c.queue.Enqueue(ctx, func(ctx context.Context) ([]byte, error) {
		return c.sendPrivate(ctx, endpoint, params)
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// sendPrivate은 개인 요청 한 번의 시도입니다. 매 시도마다 새 논스로 서명합니다.
func (c *Client) sendPrivate(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	nonce := c.nonce.Next()

	signed := url.Values{}
	for key, values := range params {
		for _, v := range values {
			signed.Add(key, v)
		}
	}
	signed.Set("nonce", strconv.FormatInt(nonce, 10))

	signature, err := Sign(endpoint, signed, c.privateKey, nonce)
	if err != nil {
		return nil, fmt.Errorf("요청 서명 실패: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(signed.Encode()))
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", signature)

	return c.send(req, endpoint)
}

// send는 요청을 실행하고 응답 봉투를 검사합니다
func (c *Client) send(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("응답 파싱 실패 (HTTP %d): %w", resp.StatusCode, err)
	}

	if len(envelope.Error) > 0 {
		return nil, domain.NewExchangeError(endpoint, envelope.Error)
	}

	return envelope.Result, nil
}

// GetTicker는 페어의 현재가(마지막 체결가)를 조회합니다
func (c *Client) GetTicker(ctx context.Context, pair string) (decimal.Decimal, error) {
	if pair == "" {
		pair = c.pair
	}

	params := url.Values{}
	params.Set("pair", pair)

	result, err := c.doPublic(ctx, endpointTicker, params)
	if err != nil {
		return decimal.Zero, fmt.Errorf("현재가 조회 실패: %w", err)
	}

	var tickers map[string]tickerInfo
	if err := json.Unmarshal(result, &tickers); err != nil {
		return decimal.Zero, fmt.Errorf("현재가 파싱 실패: %w", err)
	}

	info, ok := tickers[pair]
	if !ok || len(info.Close) == 0 {
		return decimal.Zero, fmt.Errorf("응답에 페어 정보가 없습니다: %s", pair)
	}

	price, err := decimal.NewFromString(info.Close[0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("현재가 변환 실패: %w", err)
	}

	return price, nil
}

// GetBalance는 계정의 BTC/EUR 잔고를 조회합니다. 없는 자산은 0으로 처리합니다.
func (c *Client) GetBalance(ctx context.Context) (domain.AccountBalance, error) {
	result, err := c.doPrivate(ctx, endpointBalance, url.Values{})
	if err != nil {
		return domain.AccountBalance{}, fmt.Errorf("잔고 조회 실패: %w", err)
	}

	var balances map[string]string
	if err := json.Unmarshal(result, &balances); err != nil {
		return domain.AccountBalance{}, fmt.Errorf("잔고 파싱 실패: %w", err)
	}

	balance := domain.AccountBalance{
		Asset: decimal.Zero,
		Fiat:  decimal.Zero,
	}

	if raw, ok := balances[domain.AssetKeyBTC]; ok {
		balance.Asset, err = decimal.NewFromString(raw)
		if err != nil {
			return domain.AccountBalance{}, fmt.Errorf("BTC 잔고 변환 실패: %w", err)
		}
	}
	if raw, ok := balances[domain.AssetKeyEUR]; ok {
		balance.Fiat, err = decimal.NewFromString(raw)
		if err != nil {
			return domain.AccountBalance{}, fmt.Errorf("EUR 잔고 변환 실패: %w", err)
		}
	}

	return balance, nil
}

// GetOpenOrders는 미체결 주문 목록을 조회합니다
func (c *Client) GetOpenOrders(ctx context.Context) ([]domain.OpenOrder, error) {
	result, err := c.doPrivate(ctx, endpointOpenOrders, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("미체결 주문 조회 실패: %w", err)
	}

	var parsed openOrdersResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("미체결 주문 파싱 실패: %w", err)
	}

	orders := make([]domain.OpenOrder, 0, len(parsed.Open))
	for id, info := range parsed.Open {
		limitPrice, err := decimal.NewFromString(info.Descr.Price)
		if err != nil {
			log.Printf("미체결 주문 %s의 지정가 변환 실패, 건너뜁니다: %v", id, err)
			continue
		}
		amount, err := decimal.NewFromString(info.Volume)
		if err != nil {
			log.Printf("미체결 주문 %s의 수량 변환 실패, 건너뜁니다: %v", id, err)
			continue
		}

		orders = append(orders, domain.OpenOrder{
			OrderID:    id,
			Side:       domain.OrderSide(info.Descr.Type),
			LimitPrice: limitPrice,
			Amount:     amount,
		})
	}

	return orders, nil
}

// GetClosedOrders는 체결 완료 주문 이력을 최신순으로 조회합니다
func (c *Client) GetClosedOrders(ctx context.Context) ([]domain.ClosedOrder, error) {
	params := url.Values{}
	params.Set("trades", "true")

	result, err := c.doPrivate(ctx, endpointClosedOrders, params)
	if err != nil {
		return nil, fmt.Errorf("체결 이력 조회 실패: %w", err)
	}

	var parsed closedOrdersResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("체결 이력 파싱 실패: %w", err)
	}

	orders := make([]domain.ClosedOrder, 0, len(parsed.Closed))
	for id, info := range parsed.Closed {
		price, err := decimal.NewFromString(info.Price)
		if err != nil {
			log.Printf("체결 주문 %s의 가격 변환 실패, 건너뜁니다: %v", id, err)
			continue
		}
		volume, err := decimal.NewFromString(info.Volume)
		if err != nil {
			log.Printf("체결 주문 %s의 수량 변환 실패, 건너뜁니다: %v", id, err)
			continue
		}
		fee := decimal.Zero
		if info.Fee != "" {
			fee, err = decimal.NewFromString(info.Fee)
			if err != nil {
				log.Printf("체결 주문 %s의 수수료 변환 실패, 0으로 처리합니다: %v", id, err)
				fee = decimal.Zero
			}
		}

		seconds, fraction := math.Modf(info.CloseTime)
		orders = append(orders, domain.ClosedOrder{
			OrderID:   id,
			Pair:      info.Descr.Pair,
			Side:      domain.OrderSide(info.Descr.Type),
			Price:     price,
			Volume:    volume,
			Fee:       fee,
			CloseTime: time.Unix(int64(seconds), int64(fraction*float64(time.Second))),
		})
	}

	// 최신 체결이 앞에 오도록 정렬
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CloseTime.After(orders[j].CloseTime)
	})

	return orders, nil
}

// PlaceOrder는 새로운 주문을 생성하고 거래소 주문 ID를 반환합니다.
// 수량/가격 검증 실패는 네트워크 호출 전에 동기적으로 반환됩니다.
func (c *Client) PlaceOrder(ctx context.Context, order domain.OrderRequest) (string, error) {
	if order.Volume.LessThanOrEqual(decimal.Zero) {
		return "", domain.ErrInvalidOrderVolume
	}
	if order.Type == "" {
		// 지정가가 없으면 시장가 주문
		if order.Price.IsZero() {
			order.Type = domain.Market
		} else {
			order.Type = domain.Limit
		}
	}
	if order.Type == domain.Limit && order.Price.LessThanOrEqual(decimal.Zero) {
		return "", domain.ErrInvalidOrderPrice
	}

	pair := order.Pair
	if pair == "" {
		pair = c.pair
	}

	params := url.Values{}
	params.Set("pair", pair)
	params.Set("type", string(order.Side))
	params.Set("ordertype", string(order.Type))
	params.Set("volume", order.Volume.StringFixed(8))
	if order.Type == domain.Limit {
		params.Set("price", order.Price.StringFixed(2))
	}

	result, err := c.doPrivate(ctx, endpointAddOrder, params)
	if err != nil {
		return "", fmt.Errorf("주문 실행 실패 [%s %s %s]: %w",
			order.Side, order.Type, order.Volume.StringFixed(8), err)
	}

	var parsed addOrderResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return "", fmt.Errorf("주문 응답 파싱 실패: %w", err)
	}
	if len(parsed.TxIDs) == 0 {
		return "", fmt.Errorf("주문 응답에 txid가 없습니다")
	}

	return parsed.TxIDs[0], nil
}

// CancelOrder는 주문을 취소합니다.
// 호출자는 취소를 best-effort로 취급하므로 실패는 false로 삼킵니다.
func (c *Client) CancelOrder(ctx context.Context, orderID string) bool {
	params := url.Values{}
	params.Set("txid", orderID)

	if _, err := c.doPrivate(ctx, endpointCancelOrder, params); err != nil {
		log.Printf("주문 취소 실패 (ID: %s): %v", orderID, err)
		return false
	}

	// 취소가 반영될 시간을 잠시 기다립니다
	select {
	case <-ctx.Done():
	case <-time.After(c.cancelDelay):
	}

	return true
}

// VerifyConnection은 잔고 조회 왕복으로 API 키와 연결 상태를 확인합니다
func (c *Client) VerifyConnection(ctx context.Context) bool {
	if _, err := c.GetBalance(ctx); err != nil {
		log.Printf("크라켄 연결 확인 실패: %v", err)
		return false
	}
	return true
}
