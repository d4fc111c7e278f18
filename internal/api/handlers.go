package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/transfer"
	"CCIP-Bridge/internal/web3"
)

// maxBodyBytes 限制提交请求体大小。
const maxBodyBytes = 64 << 10

// SubmitRequest 是提交转账意图的请求体。
type SubmitRequest struct {
	SourceChain      string            `json:"sourceChain"`
	DestinationChain string            `json:"destinationChain"`
	TokenIdentifier  string            `json:"tokenIdentifier"`
	Amount           string            `json:"amount"`
	ReceiverAddress  string            `json:"receiverAddress"`
	Options          *transfer.Options `json:"options,omitempty"`
}

// SubmitResponse 返回关联 ID。TransferID 与 CorrelationID 相同，兼容旧客户端。
type SubmitResponse struct {
	CorrelationID string          `json:"correlationId"`
	TransferID    string          `json:"transferId"`
	Status        transfer.Status `json:"status"`
	Message       string          `json:"message,omitempty"`
}

// ListResponse 是转账列表的响应体。
type ListResponse struct {
	Transfers []*transfer.Record `json:"transfers"`
	Stats     transfer.Stats     `json:"stats"`
}

// ChainView 是链选择器表对外展示的一项。
type ChainView struct {
	Key      string      `json:"key"`
	Name     string      `json:"name"`
	Aliases  []string    `json:"aliases,omitempty"`
	Family   string      `json:"family"`
	Selector uint64      `json:"selector,string"`
	ChainID  string      `json:"chainId,omitempty"`
	Tokens   []TokenView `json:"tokens,omitempty"`
}

// TokenView 描述源链上可转账的代币。
type TokenView struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals uint8  `json:"decimals"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// TransferID 在记录已登记但派发失败时返回，便于调用方查询该记录。
	TransferID string `json:"transferId,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmitTransfer(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, xerrors.Wrap(transfer.CodeInvalidIntent, err, "请求体解析失败"))
		return
	}

	record, err := s.transfers.Submit(r.Context(), transfer.Intent{
		SourceChain:      req.SourceChain,
		DestinationChain: req.DestinationChain,
		Token:            req.TokenIdentifier,
		Amount:           req.Amount,
		Receiver:         req.ReceiverAddress,
	}, req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/transfers/"+record.ID)
	writeJSON(w, http.StatusAccepted, SubmitResponse{
		CorrelationID: record.ID,
		TransferID:    record.ID,
		Status:        record.Status,
		Message:       record.Message,
	})
}

// handleTransfers 在带 transferId 参数时返回单条记录，否则返回列表。
func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if id := strings.TrimSpace(query.Get("transferId")); id != "" {
		s.writeRecord(w, r, id)
		return
	}

	opts, err := listOptions(query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.transfers.List(r.Context(), opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stats, err := s.transfers.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Transfers: records, Stats: stats})
}

func (s *Server) handleTransferDetail(w http.ResponseWriter, r *http.Request) {
	// 路由按转义后的路径匹配，ID 需要还原。
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "转账 ID 编码非法"))
		return
	}
	s.writeRecord(w, r, id)
}

func (s *Server) writeRecord(w http.ResponseWriter, r *http.Request, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		s.writeError(w, r, xerrors.New(xerrors.CodeInvalidArgument, "缺少转账 ID"))
		return
	}
	record, err := s.transfers.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleChains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"chains": ChainViews(s.chains)})
}

func listOptions(query url.Values) ([]transfer.ListOption, error) {
	get := func(key string) string {
		return strings.TrimSpace(query.Get(key))
	}

	var opts []transfer.ListOption
	if raw := get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "limit %q 不是正整数", raw)
		}
		opts = append(opts, transfer.WithLimit(limit))
	}
	if raw := get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "offset %q 不是非负整数", raw)
		}
		opts = append(opts, transfer.WithOffset(offset))
	}
	if raw := get("status"); raw != "" {
		var statuses []transfer.Status
		for _, part := range strings.Split(raw, ",") {
			status := transfer.Status(strings.ToLower(strings.TrimSpace(part)))
			if !transfer.IsValidStatus(status) {
				return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "未知的状态 %q", part)
			}
			statuses = append(statuses, status)
		}
		opts = append(opts, transfer.WithStatuses(statuses...))
	}
	if raw := get("q"); raw != "" {
		opts = append(opts, transfer.WithQuery(raw))
	}
	if strings.EqualFold(get("order"), "asc") {
		opts = append(opts, transfer.WithSortOrder(transfer.SortByUpdatedAsc))
	}
	return opts, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := xerrors.HTTPStatusOf(err)
	code := xerrors.CodeOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", r.URL.Path), slog.String("code", string(code)), slog.Any("error", err))
	}
	detail := errorDetail{Code: string(code), Message: xerrors.Reason(err)}
	if coded, ok := xerrors.From(err); ok {
		detail.TransferID = coded.Metadata()[transfer.MetadataTransferID]
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ChainViews 将注册表转换为 API 视图，ccipctl 在离线模式下也使用它。
func ChainViews(registry *web3.Registry) []ChainView {
	chains := registry.Chains()
	views := make([]ChainView, 0, len(chains))
	for _, chain := range chains {
		view := ChainView{
			Key:      chain.Key,
			Name:     chain.Name,
			Aliases:  chain.Aliases,
			Family:   string(chain.Family),
			Selector: chain.Selector,
			ChainID:  chain.ChainID,
		}
		for _, token := range chain.Tokens {
			view.Tokens = append(view.Tokens, TokenView{Symbol: token.Symbol, Mint: token.Mint.String(), Decimals: token.Decimals})
		}
		views = append(views, view)
	}
	return views
}
