package transfer

import (
	"strconv"
	"strings"
)

// Intent 是调用方提交的转账意图，构造后不再修改。
type Intent struct {
	SourceChain      string `json:"sourceChain"`
	DestinationChain string `json:"destinationChain"`
	Token            string `json:"tokenIdentifier"`
	Amount           string `json:"amount"`
	Receiver         string `json:"receiverAddress,omitempty"`
}

// ParseAmount 将十进制字符串解析为最小单位数量，必须大于 0 且可用 64 位表示。
func ParseAmount(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalidIntentf("amount is required")
	}
	amount, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, invalidIntentf("amount %q is not an unsigned 64-bit integer", raw)
	}
	if amount == 0 {
		return 0, invalidIntentf("amount must be greater than 0")
	}
	return amount, nil
}
