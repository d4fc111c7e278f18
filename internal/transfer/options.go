package transfer

import (
	"strings"
)

// FeeToken 选择支付跨链费用的资产。
type FeeToken string

const (
	FeeTokenNative FeeToken = "NATIVE"
	FeeTokenLink   FeeToken = "LINK"
)

// ParseFeeToken 忽略大小写解析费用资产，空字符串返回 ok=false。
func ParseFeeToken(raw string) (FeeToken, bool, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return "", false, nil
	case string(FeeTokenNative):
		return FeeTokenNative, true, nil
	case string(FeeTokenLink):
		return FeeTokenLink, true, nil
	default:
		return "", false, invalidIntentf("fee token %q is not one of NATIVE, LINK", raw)
	}
}

// Options 是调用方可选覆盖的执行参数，未设置的字段使用默认配置。
type Options struct {
	FeeToken                 string  `json:"feeToken,omitempty"`
	GasLimit                 *uint64 `json:"gasLimit,omitempty"`
	AllowOutOfOrderExecution *bool   `json:"allowOutOfOrderExecution,omitempty"`
}

// Params 是合并默认值后的最终执行参数。
type Params struct {
	FeeToken                 FeeToken `json:"feeToken"`
	GasLimit                 uint64   `json:"gasLimit"`
	AllowOutOfOrderExecution bool     `json:"allowOutOfOrderExecution"`
}

// DefaultParams 返回默认执行参数。
func DefaultParams() Params {
	return Params{FeeToken: FeeTokenNative, GasLimit: 0, AllowOutOfOrderExecution: true}
}

// Resolve 将 opts 覆盖到 defaults 之上。
func (opts *Options) Resolve(defaults Params) (Params, error) {
	params := defaults
	if params.FeeToken == "" {
		params.FeeToken = FeeTokenNative
	}
	if opts == nil {
		return params, nil
	}
	token, ok, err := ParseFeeToken(opts.FeeToken)
	if err != nil {
		return Params{}, err
	}
	if ok {
		params.FeeToken = token
	}
	if opts.GasLimit != nil {
		params.GasLimit = *opts.GasLimit
	}
	if opts.AllowOutOfOrderExecution != nil {
		params.AllowOutOfOrderExecution = *opts.AllowOutOfOrderExecution
	}
	return params, nil
}
