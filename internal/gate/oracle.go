package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/hivechat/hive/config"
)

var (
	ErrNoWallet = errors.New("用户未绑定钱包地址")

	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// Oracle NFT 持仓校验
// 加入门控 Hive 时调用；查询失败按未持有处理（fail-closed）
type Oracle interface {
	Owns(ctx context.Context, wallet, contract string) (bool, error)
}

// ValidAddress 校验合约/钱包地址格式（0x + 40 位十六进制）
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// HTTPOracle 调用外部索引服务的实现
type HTTPOracle struct {
	endpoint string
	client   *http.Client
}

func NewHTTPOracle(cfg *config.TokenGateConfig) *HTTPOracle {
	return &HTTPOracle{
		endpoint: cfg.Endpoint,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

type ownsRequest struct {
	WalletAddress   string `json:"wallet_address"`
	ContractAddress string `json:"contract_address"`
}

type ownsResponse struct {
	Owns bool `json:"owns"`
}

func (o *HTTPOracle) Owns(ctx context.Context, wallet, contract string) (bool, error) {
	if wallet == "" {
		return false, ErrNoWallet
	}

	body, err := json.Marshal(ownsRequest{WalletAddress: wallet, ContractAddress: contract})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("持仓查询失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("持仓查询返回 %d", resp.StatusCode)
	}

	var result ownsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("解析持仓查询响应失败: %w", err)
	}
	return result.Owns, nil
}
