// internal/exchange/exchange.go
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/assist-by/halvar/internal/domain"
)

// Exchange는 거래소와의 상호작용을 위한 인터페이스입니다.
type Exchange interface {
	// 시장 데이터 조회 (공개 API)
	GetTicker(ctx context.Context, pair string) (decimal.Decimal, error)

	// 계정 데이터 조회 (개인 API)
	GetBalance(ctx context.Context) (domain.AccountBalance, error)
	GetOpenOrders(ctx context.Context) ([]domain.OpenOrder, error)
	GetClosedOrders(ctx context.Context) ([]domain.ClosedOrder, error)

	// 거래 기능 (개인 API)
	PlaceOrder(ctx context.Context, order domain.OrderRequest) (string, error)
	// CancelOrder는 취소 실패를 bool로 삼킵니다. 호출자는 취소를 best-effort로 취급합니다.
	CancelOrder(ctx context.Context, orderID string) bool

	// 연결 확인
	VerifyConnection(ctx context.Context) bool
}
