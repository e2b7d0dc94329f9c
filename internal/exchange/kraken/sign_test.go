package kraken

import (
	"encoding/base64"
	"net/url"
	"testing"
)

// 테스트용 base64 시크릿
var testSecret = base64.StdEncoding.EncodeToString([]byte("halvar-test-private-key-material"))

func signParams(nonce string) url.Values {
	params := url.Values{}
	params.Set("nonce", nonce)
	params.Set("pair", "XXBTZEUR")
	params.Set("type", "buy")
	return params
}

func TestSignDeterministic(t *testing.T) {
	params := signParams("1700000000000001")

	first, err := Sign("/0/private/AddOrder", params, testSecret, 1700000000000001)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	second, err := Sign("/0/private/AddOrder", params, testSecret, 1700000000000001)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if first != second {
		t.Errorf("동일 입력의 서명이 다릅니다: %s != %s", first, second)
	}
	if first == "" {
		t.Error("서명이 비어 있습니다")
	}
}

func TestSignSensitivity(t *testing.T) {
	base, err := Sign("/0/private/AddOrder", signParams("1700000000000001"), testSecret, 1700000000000001)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name   string
		path   string
		params url.Values
		nonce  int64
	}{
		{
			name:   "논스가 다른 경우",
			path:   "/0/private/AddOrder",
			params: signParams("1700000000000002"),
			nonce:  1700000000000002,
		},
		{
			name: "파라미터가 다른 경우",
			path: "/0/private/AddOrder",
			params: func() url.Values {
				p := signParams("1700000000000001")
				p.Set("type", "sell")
				return p
			}(),
			nonce: 1700000000000001,
		},
		{
			name:   "경로가 다른 경우",
			path:   "/0/private/Balance",
			params: signParams("1700000000000001"),
			nonce:  1700000000000001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sign(tt.path, tt.params, testSecret, tt.nonce)
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			if got == base {
				t.Errorf("입력이 달라도 서명이 같습니다: %s", got)
			}
		})
	}
}

func TestSignInvalidSecret(t *testing.T) {
	_, err := Sign("/0/private/Balance", signParams("1"), "not-base64!!!", 1)
	if err == nil {
		t.Error("잘못된 시크릿에 대해 에러를 기대했습니다")
	}
}
