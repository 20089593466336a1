package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/application/usecase"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
)

// userIDHeader identifies the caller. Session handling belongs to the budget
// application in front of this service.
const userIDHeader = "X-User-ID"

// BankingHandler exposes the banking use cases as a JSON API.
type BankingHandler struct {
	listBanks    *usecase.ListBanksUseCase
	beginAuth    *usecase.BeginAuthorizationUseCase
	completeAuth *usecase.CompleteAuthorizationUseCase
	connect      *usecase.ConnectBankUseCase
	disconnect   *usecase.DisconnectBankUseCase
	status       *usecase.ConnectionStatusUseCase
	sync         *usecase.SyncAccountsUseCase
	summary      *usecase.AccountsSummaryUseCase
	recent       *usecase.RecentTransactionsUseCase
	spending     *usecase.SpendingByCategoryUseCase
	userInfo     *usecase.UserInfoUseCase
	logger       *slog.Logger
}

// NewBankingHandler creates a new BankingHandler. beginAuth and completeAuth
// may be nil when the active provider has no OAuth2 flow (the simulator).
func NewBankingHandler(
	listBanks *usecase.ListBanksUseCase,
	beginAuth *usecase.BeginAuthorizationUseCase,
	completeAuth *usecase.CompleteAuthorizationUseCase,
	connect *usecase.ConnectBankUseCase,
	disconnect *usecase.DisconnectBankUseCase,
	status *usecase.ConnectionStatusUseCase,
	sync *usecase.SyncAccountsUseCase,
	summary *usecase.AccountsSummaryUseCase,
	recent *usecase.RecentTransactionsUseCase,
	spending *usecase.SpendingByCategoryUseCase,
	userInfo *usecase.UserInfoUseCase,
	logger *slog.Logger,
) *BankingHandler {
	return &BankingHandler{
		listBanks:    listBanks,
		beginAuth:    beginAuth,
		completeAuth: completeAuth,
		connect:      connect,
		disconnect:   disconnect,
		status:       status,
		sync:         sync,
		summary:      summary,
		recent:       recent,
		spending:     spending,
		userInfo:     userInfo,
		logger:       logger,
	}
}

// RegisterRoutes registers the banking API routes on the provided ServeMux.
func (h *BankingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/banks", h.handleListBanks)
	mux.HandleFunc("POST /api/banks/{bankID}/connect", h.handleConnect)
	mux.HandleFunc("POST /api/banks/{bankID}/disconnect", h.handleDisconnect)
	mux.HandleFunc("GET /api/banks/{bankID}/status", h.handleStatus)
	mux.HandleFunc("GET /api/bank/authorize", h.handleAuthorize)
	mux.HandleFunc("GET /api/bank/callback", h.handleCallback)
	mux.HandleFunc("POST /api/bank/sync", h.handleSync)
	mux.HandleFunc("GET /api/bank/accounts/summary", h.handleSummary)
	mux.HandleFunc("GET /api/bank/transactions/recent", h.handleRecent)
	mux.HandleFunc("GET /api/bank/spending", h.handleSpending)
	mux.HandleFunc("GET /api/bank/userinfo", h.handleUserInfo)
}

func (h *BankingHandler) handleListBanks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.listBanks.Execute())
}

func (h *BankingHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.connect.Execute(r.Context(), dto.ConnectBankRequest{
		UserID: userID,
		BankID: r.PathValue("bankID"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.disconnect.Execute(r.Context(), dto.DisconnectBankRequest{
		UserID: userID,
		BankID: r.PathValue("bankID"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.status.Execute(r.Context(), dto.ConnectBankRequest{
		UserID: userID,
		BankID: r.PathValue("bankID"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if h.beginAuth == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("authorization flow unavailable with this provider"))
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.beginAuth.Execute(r.Context(), dto.BeginAuthorizationRequest{
		UserID: userID,
		Scopes: r.URL.Query()["scope"],
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.completeAuth == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("authorization flow unavailable with this provider"))
		return
	}
	query := r.URL.Query()
	resp, err := h.completeAuth.Execute(r.Context(), dto.CompleteAuthorizationRequest{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		ErrorCode:        query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.sync.Execute(r.Context(), dto.SyncAccountsRequest{UserID: userID})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.summary.Execute(r.Context(), dto.AccountsSummaryRequest{
		UserID: userID,
		BankID: r.URL.Query().Get("bank_id"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.recent.Execute(r.Context(), dto.RecentTransactionsRequest{
		UserID: userID,
		Days:   intQuery(r, "days"),
		Limit:  intQuery(r, "limit"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleSpending(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.spending.Execute(r.Context(), dto.SpendingByCategoryRequest{
		UserID: userID,
		Days:   intQuery(r, "days"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BankingHandler) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if h.userInfo == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("userinfo unavailable with this provider"))
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	info, err := h.userInfo.Execute(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *BankingHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing user identifier"))
		return "", false
	}
	return userID, true
}

// writeError maps domain errors to HTTP status codes.
func (h *BankingHandler) writeError(w http.ResponseWriter, err error) {
	var authErr *model.AuthorizationError
	var apiErr *model.APIError

	switch {
	case errors.Is(err, model.ErrUnknownBank):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, model.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrStateExpired):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusBadRequest, errorBody(authErr.Error()))
	case errors.Is(err, model.ErrNotAuthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, model.ErrTokenExchangeFailed):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	case errors.Is(err, model.ErrNetwork):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusBadGateway, errorBody(apiErr.Error()))
	default:
		h.logger.Error("unhandled API error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func intQuery(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
