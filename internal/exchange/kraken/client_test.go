package kraken

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/assist-by/halvar/internal/domain"
)

// newTestClient는 httptest 서버를 바라보는 클라이언트를 생성합니다.
// 레이트 리미터와 재시도 간격은 테스트가 느려지지 않도록 최소화합니다.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(
		"test-api-key",
		testSecret,
		NewNonceManager(nil),
		WithBaseURL(srv.URL),
		WithRateLimiter(NewRateLimiter(0)),
		WithQueue(NewPrivateQueue(
			WithRetryDelay(time.Millisecond),
			WithCooldown(time.Millisecond),
		)),
		WithCancelDelay(0),
	)
}

func writeEnvelope(w http.ResponseWriter, result string) {
	fmt.Fprintf(w, `{"error":[],"result":%s}`, result)
}

func writeEnvelopeError(w http.ResponseWriter, apiErr string) {
	fmt.Fprintf(w, `{"error":[%q],"result":null}`, apiErr)
}

func TestGetTicker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/public/Ticker" {
			t.Errorf("요청 경로 = %s, want /0/public/Ticker", r.URL.Path)
		}
		writeEnvelope(w, `{"XXBTZEUR":{"c":["30123.45","0.5"]}}`)
	})

	price, err := c.GetTicker(context.Background(), "")
	if err != nil {
		t.Fatalf("GetTicker() error = %v", err)
	}
	if !price.Equal(d("30123.45")) {
		t.Errorf("GetTicker() = %s, want 30123.45", price)
	}
}

func TestGetTickerMissingPair(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `{}`)
	})

	if _, err := c.GetTicker(context.Background(), "XXBTZEUR"); err == nil {
		t.Error("응답에 페어가 없으면 에러를 기대했습니다")
	}
}

func TestGetBalance(t *testing.T) {
	tests := []struct {
		name      string
		result    string
		wantAsset string
		wantFiat  string
	}{
		{
			name:      "두 자산 모두 존재",
			result:    `{"XXBT":"0.12345678","ZEUR":"1500.50"}`,
			wantAsset: "0.12345678",
			wantFiat:  "1500.50",
		},
		{
			name:      "자산이 없으면 0으로 처리",
			result:    `{"ZEUR":"1500.50"}`,
			wantAsset: "0",
			wantFiat:  "1500.50",
		},
		{
			name:      "빈 응답",
			result:    `{}`,
			wantAsset: "0",
			wantFiat:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("API-Key") != "test-api-key" {
					t.Error("API-Key 헤더가 없습니다")
				}
				if r.Header.Get("API-Sign") == "" {
					t.Error("API-Sign 헤더가 없습니다")
				}
				writeEnvelope(w, tt.result)
			})

			balance, err := c.GetBalance(context.Background())
			if err != nil {
				t.Fatalf("GetBalance() error = %v", err)
			}
			if !balance.Asset.Equal(d(tt.wantAsset)) {
				t.Errorf("Asset = %s, want %s", balance.Asset, tt.wantAsset)
			}
			if !balance.Fiat.Equal(d(tt.wantFiat)) {
				t.Errorf("Fiat = %s, want %s", balance.Fiat, tt.wantFiat)
			}
		})
	}
}

func TestPrivateRequestNonceIncreases(t *testing.T) {
	var mu sync.Mutex
	var nonces []int64

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("폼 파싱 실패: %v", err)
		}
		nonce, err := strconv.ParseInt(r.PostForm.Get("nonce"), 10, 64)
		if err != nil {
			t.Fatalf("nonce 파싱 실패: %v", err)
		}
		mu.Lock()
		nonces = append(nonces, nonce)
		mu.Unlock()
		writeEnvelope(w, `{}`)
	})

	for i := 0; i < 3; i++ {
		if _, err := c.GetBalance(context.Background()); err != nil {
			t.Fatalf("GetBalance() error = %v", err)
		}
	}

	if len(nonces) != 3 {
		t.Fatalf("요청 횟수 = %d, want 3", len(nonces))
	}
	for i := 1; i < len(nonces); i++ {
		if nonces[i] <= nonces[i-1] {
			t.Errorf("nonce[%d] = %d는 이전 값 %d보다 커야 합니다", i, nonces[i], nonces[i-1])
		}
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("검증 실패는 네트워크 호출 전에 반환되어야 합니다")
	})

	_, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Side:   domain.Buy,
		Volume: d("0"),
	})
	if !errors.Is(err, domain.ErrInvalidOrderVolume) {
		t.Errorf("error = %v, want ErrInvalidOrderVolume", err)
	}

	_, err = c.PlaceOrder(context.Background(), domain.OrderRequest{
		Side:   domain.Sell,
		Type:   domain.Limit,
		Volume: d("0.001"),
		Price:  d("0"),
	})
	if !errors.Is(err, domain.ErrInvalidOrderPrice) {
		t.Errorf("error = %v, want ErrInvalidOrderPrice", err)
	}
}

func TestPlaceOrderMarket(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("폼 파싱 실패: %v", err)
		}
		if got := r.PostForm.Get("ordertype"); got != "market" {
			t.Errorf("ordertype = %s, want market (가격이 없으면 시장가)", got)
		}
		if got := r.PostForm.Get("volume"); got != "0.00150000" {
			t.Errorf("volume = %s, want 0.00150000", got)
		}
		if got := r.PostForm.Get("type"); got != "buy" {
			t.Errorf("type = %s, want buy", got)
		}
		if got := r.PostForm.Get("pair"); got != "XXBTZEUR" {
			t.Errorf("pair = %s, want XXBTZEUR", got)
		}
		writeEnvelope(w, `{"txid":["OABC12-DEF34-GHI56"],"descr":{"order":"buy 0.00150000 XBTEUR @ market"}}`)
	})

	txid, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Side:   domain.Buy,
		Volume: d("0.0015"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if txid != "OABC12-DEF34-GHI56" {
		t.Errorf("txid = %s, want OABC12-DEF34-GHI56", txid)
	}
}

func TestPlaceOrderLimitPriceFormat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("폼 파싱 실패: %v", err)
		}
		if got := r.PostForm.Get("ordertype"); got != "limit" {
			t.Errorf("ordertype = %s, want limit", got)
		}
		if got := r.PostForm.Get("price"); got != "30000.10" {
			t.Errorf("price = %s, want 30000.10", got)
		}
		writeEnvelope(w, `{"txid":["OXYZ99-ABC11-DEF22"],"descr":{}}`)
	})

	_, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Side:   domain.Sell,
		Volume: d("0.001"),
		Price:  d("30000.1"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
}

func TestPlaceOrderRateLimitRetry(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()

		if first {
			writeEnvelopeError(w, "EAPI:Rate limit exceeded")
			return
		}
		writeEnvelope(w, `{"txid":["ORETRY-OK111-OK222"],"descr":{}}`)
	})

	txid, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Side:   domain.Buy,
		Volume: d("0.001"),
	})
	if err != nil {
		t.Fatalf("레이트 리밋 후 재전송이 성공해야 합니다: %v", err)
	}
	if txid != "ORETRY-OK111-OK222" {
		t.Errorf("txid = %s, want ORETRY-OK111-OK222", txid)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("요청 횟수 = %d, want 2", calls)
	}
}

func TestCancelOrderSwallowsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, "EOrder:Unknown order")
	})

	if c.CancelOrder(context.Background(), "ONOPE-00000-00000") {
		t.Error("취소 실패는 false로 반환되어야 합니다")
	}
}

func TestCancelOrderSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("폼 파싱 실패: %v", err)
		}
		if got := r.PostForm.Get("txid"); got != "OGOOD-11111-22222" {
			t.Errorf("txid = %s, want OGOOD-11111-22222", got)
		}
		writeEnvelope(w, `{"count":1}`)
	})

	if !c.CancelOrder(context.Background(), "OGOOD-11111-22222") {
		t.Error("취소 성공은 true로 반환되어야 합니다")
	}
}

func TestGetClosedOrdersSorted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `{"closed":{
			"OLD111-AAAAA-BBBBB":{"status":"closed","descr":{"pair":"XXBTZEUR","type":"buy","price":"29000.0"},"vol":"0.002","price":"29000.0","fee":"0.15","closetm":1700000000.5},
			"NEW222-CCCCC-DDDDD":{"status":"closed","descr":{"pair":"XXBTZEUR","type":"sell","price":"30000.0"},"vol":"0.002","price":"30000.0","fee":"0.16","closetm":1700005000.5}
		}}`)
	})

	orders, err := c.GetClosedOrders(context.Background())
	if err != nil {
		t.Fatalf("GetClosedOrders() error = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("주문 수 = %d, want 2", len(orders))
	}
	if orders[0].OrderID != "NEW222-CCCCC-DDDDD" {
		t.Errorf("첫 번째 주문 = %s, 최신 체결이 앞에 와야 합니다", orders[0].OrderID)
	}
	if orders[0].Side != domain.Sell {
		t.Errorf("첫 번째 주문 방향 = %s, want sell", orders[0].Side)
	}
	if !orders[1].Price.Equal(d("29000")) {
		t.Errorf("두 번째 주문 가격 = %s, want 29000", orders[1].Price)
	}
}

func TestGetOpenOrdersSkipsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `{"open":{
			"OGOOD-33333-44444":{"status":"open","descr":{"pair":"XXBTZEUR","type":"sell","price":"31000.0"},"vol":"0.002"},
			"OBAD1-55555-66666":{"status":"open","descr":{"pair":"XXBTZEUR","type":"buy","price":"not-a-number"},"vol":"0.002"}
		}}`)
	})

	orders, err := c.GetOpenOrders(context.Background())
	if err != nil {
		t.Fatalf("GetOpenOrders() error = %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("주문 수 = %d, want 1 (파싱 불가 항목은 건너뜁니다)", len(orders))
	}
	if orders[0].OrderID != "OGOOD-33333-44444" {
		t.Errorf("주문 ID = %s, want OGOOD-33333-44444", orders[0].OrderID)
	}
}

func TestVerifyConnection(t *testing.T) {
	ok := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `{"ZEUR":"100.00"}`)
	})
	if !ok.VerifyConnection(context.Background()) {
		t.Error("정상 응답에서 연결 확인이 성공해야 합니다")
	}

	bad := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, "EAPI:Invalid key")
	})
	if bad.VerifyConnection(context.Background()) {
		t.Error("거부 응답에서 연결 확인이 실패해야 합니다")
	}
}
