package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
)

// Sign은 크라켄 개인 API 요청의 서명을 생성합니다.
// 동일한 입력은 항상 동일한 서명을 만들며, 네트워크나 상태 접근이 없는 순수 함수입니다.
// params에는 nonce 필드가 포함되어 있어야 합니다.
func Sign(path string, params url.Values, secret string, nonce int64) (string, error) {
	// 서명 대상: SHA256(nonce ++ 인코딩된 파라미터)
	postData := params.Encode()
	message := strconv.FormatInt(nonce, 10) + postData
	digest := sha256.Sum256([]byte(message))

	// 시크릿은 base64로 디코딩해 HMAC 키로 사용합니다
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("시크릿 키 디코딩 실패: %w", err)
	}

	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(digest[:])

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
