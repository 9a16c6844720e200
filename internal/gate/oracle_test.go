package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivechat/hive/config"
)

func TestValidAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"合法地址小写", "0x1111111111111111111111111111111111111111", true},
		{"合法地址混合大小写", "0xAbCdEf1234567890aBcDeF1234567890abcdef12", true},
		{"缺少前缀", "1111111111111111111111111111111111111111", false},
		{"长度不足", "0x1234", false},
		{"长度超出", "0x11111111111111111111111111111111111111111", false},
		{"非十六进制", "0xZZZZ111111111111111111111111111111111111", false},
		{"空串", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAddress(tt.addr))
		})
	}
}

func newTestOracle(t *testing.T, handler http.HandlerFunc) *HTTPOracle {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPOracle(&config.TokenGateConfig{Endpoint: srv.URL, TimeoutSeconds: 2})
}

func TestHTTPOracle_Owns(t *testing.T) {
	oracle := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		var req ownsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0x1111111111111111111111111111111111111111", req.WalletAddress)
		assert.Equal(t, "0x2222222222222222222222222222222222222222", req.ContractAddress)

		_ = json.NewEncoder(w).Encode(ownsResponse{Owns: true})
	})

	owns, err := oracle.Owns(context.Background(),
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	assert.True(t, owns)
}

func TestHTTPOracle_NotHolding(t *testing.T) {
	oracle := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ownsResponse{Owns: false})
	})

	owns, err := oracle.Owns(context.Background(),
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	assert.False(t, owns)
}

func TestHTTPOracle_EmptyWallet(t *testing.T) {
	oracle := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("不应发起请求")
	})

	_, err := oracle.Owns(context.Background(), "", "0x2222222222222222222222222222222222222222")
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestHTTPOracle_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"非 200 状态", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"响应不是 JSON", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newTestOracle(t, tt.handler)
			_, err := oracle.Owns(context.Background(),
				"0x1111111111111111111111111111111111111111",
				"0x2222222222222222222222222222222222222222")
			assert.Error(t, err)
		})
	}
}

func TestHTTPOracle_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // 立即关掉，制造连接失败
	oracle := NewHTTPOracle(&config.TokenGateConfig{Endpoint: srv.URL, TimeoutSeconds: 1})

	_, err := oracle.Owns(context.Background(),
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222")
	assert.Error(t, err)
}
