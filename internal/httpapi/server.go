// Package httpapi is the gin façade in front of the admission flow: wallet
// sessions in, classified decisions out. Handlers capture one snapshot per
// request and never hold state between calls.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AmaanSayyad/Arbnomo/internal/bookie"
	"github.com/AmaanSayyad/Arbnomo/internal/monitoring"
	betstore "github.com/AmaanSayyad/Arbnomo/internal/store"
	"github.com/AmaanSayyad/Arbnomo/internal/walletauth"
	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

// ErrInvalidServerConfig reports a façade wired without a dependency.
var ErrInvalidServerConfig = errors.New("invalid server config")

const claimsContextKey = "wallet_claims"

// Server hosts the admission flow over HTTP.
type Server struct {
	config   Config
	flow     *betflow.Service
	sessions *walletauth.Manager
	store    betstore.Store
	rounds   *bookie.Bookie
	logger   *zap.Logger
	router   *gin.Engine
}

// New wires the façade over its collaborators and builds the route table.
func New(config Config, flow *betflow.Service, sessions *walletauth.Manager, persistence betstore.Store, rounds *bookie.Bookie, logger *zap.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServerConfig, err)
	}
	if flow == nil {
		return nil, fmt.Errorf("%w: flow dependency is nil", ErrInvalidServerConfig)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%w: session manager dependency is nil", ErrInvalidServerConfig)
	}
	if persistence == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServerConfig)
	}
	if rounds == nil {
		return nil, fmt.Errorf("%w: bookie dependency is nil", ErrInvalidServerConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		config:   config,
		flow:     flow,
		sessions: sessions,
		store:    persistence,
		rounds:   rounds,
		logger:   logger,
	}
	server.router = server.buildRouter()
	return server, nil
}

// Handler exposes the route table for embedding and tests.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.config.ListenAddr,
		Handler: server.router,
	}
	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("admission api listening", zap.String("addr", server.config.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (server *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(countRequests())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", server.adminGuard(), gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(server.sessions.OptionalGinMiddleware(claimsContextKey))

	api.POST("/session/connect", server.handleConnect)
	api.POST("/session/disconnect", server.handleDisconnect)
	api.GET("/session", server.handleSession)
	api.PUT("/session/currency", server.handleSelectCurrency)
	api.POST("/access/code", server.handleSubmitCode)
	api.GET("/state", server.handleState)
	api.POST("/bets/quote", server.handleQuote)
	api.POST("/bets", server.handlePlaceBet)
	api.GET("/rounds", server.handleRounds)

	admin := router.Group("/admin")
	admin.Use(server.adminGuard())
	admin.POST("/credits", server.handleAdminCredit)
	admin.POST("/rounds/close", server.handleAdminCloseRound)

	return router
}

func (server *Server) handleConnect(ctx *gin.Context) {
	var request connectRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with an address"))
		return
	}
	wallet, err := betflow.NewWalletAddress(request.Address)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_address", "address is not a valid wallet address"))
		return
	}
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	profile, err := server.store.EnsureProfile(requestCtx, wallet)
	if err != nil {
		server.respondDependencyError(ctx, "profile lookup failed", err)
		return
	}
	cookie, err := server.sessions.Issue(wallet.String(), "")
	if err != nil {
		server.logger.Error("session issue failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("session_error", "session could not be created"))
		return
	}
	http.SetCookie(ctx.Writer, cookie)
	session := betflow.ConnectedSession(wallet, accessStatus(profile))
	ctx.JSON(http.StatusOK, sessionPayloadFor(session, server.config.Network()))
}

func (server *Server) handleDisconnect(ctx *gin.Context) {
	http.SetCookie(ctx.Writer, server.sessions.Expire())
	session := betflow.DisconnectedSession()
	ctx.JSON(http.StatusOK, sessionPayloadFor(session, server.config.Network()))
}

func (server *Server) handleSession(ctx *gin.Context) {
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	snapshot, err := server.flow.Snapshot(requestCtx, server.sessionFrom(ctx))
	if err != nil {
		server.respondDependencyError(ctx, "snapshot failed", err)
		return
	}
	ctx.JSON(http.StatusOK, sessionPayload{
		Phase:    string(snapshot.Session.Phase()),
		Wallet:   snapshot.Session.Wallet.String(),
		Access:   string(snapshot.Session.Access),
		Currency: currencyPayloadFor(snapshot.Currency),
	})
}

func (server *Server) handleSelectCurrency(ctx *gin.Context) {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	var request currencyRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with a symbol"))
		return
	}
	network := server.config.Network()
	if request.Symbol != "" && !betflow.SelectableCurrency(network, request.Symbol) {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_currency", "currency is not selectable on this network"))
		return
	}
	cookie, err := server.sessions.Issue(claims.Wallet, request.Symbol)
	if err != nil {
		server.logger.Error("session reissue failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("session_error", "session could not be updated"))
		return
	}
	http.SetCookie(ctx.Writer, cookie)
	ctx.JSON(http.StatusOK, gin.H{
		"currency": currencyPayloadFor(betflow.ResolveCurrency(network, request.Symbol)),
	})
}

func (server *Server) handleSubmitCode(ctx *gin.Context) {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	var request accessCodeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with a code"))
		return
	}
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	session := server.sessionFrom(ctx)
	result, err := server.flow.SubmitAccessCode(requestCtx, session, request.Code)
	if err != nil {
		if errors.Is(err, betflow.ErrInvalidAccessCode) {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_code", "access code must not be empty"))
			return
		}
		server.respondDependencyError(ctx, "code verification failed", err)
		return
	}
	snapshot, err := server.flow.Snapshot(requestCtx, session)
	if err != nil {
		server.respondDependencyError(ctx, "snapshot failed", err)
		return
	}
	ctx.JSON(http.StatusOK, verificationPayload{
		Outcome: string(result.Outcome),
		Message: result.Message,
		Phase:   string(snapshot.Session.Phase()),
	})
}

func (server *Server) handleState(ctx *gin.Context) {
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	snapshot, err := server.flow.Snapshot(requestCtx, server.sessionFrom(ctx))
	if err != nil {
		server.respondDependencyError(ctx, "snapshot failed", err)
		return
	}
	ctx.JSON(http.StatusOK, statePayloadFor(snapshot))
}

func (server *Server) handleQuote(ctx *gin.Context) {
	var request betRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with target_id and amount"))
		return
	}
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	snapshot, err := server.flow.Snapshot(requestCtx, server.sessionFrom(ctx))
	if err != nil {
		server.respondDependencyError(ctx, "snapshot failed", err)
		return
	}
	quote := server.flow.QuoteBet(snapshot, request.candidate())
	ctx.JSON(http.StatusOK, decisionPayload{
		Allowed: quote.Decision.Allowed,
		Reason:  string(quote.Decision.Reason),
		Message: quote.Decision.Message,
		Payout:  quote.Payout,
	})
}

func (server *Server) handlePlaceBet(ctx *gin.Context) {
	var request betRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with target_id and amount"))
		return
	}
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	session := server.sessionFrom(ctx)
	placement, err := server.flow.PlaceBet(requestCtx, session, request.candidate())
	if err != nil {
		server.respondDependencyError(ctx, "bet placement failed", err)
		return
	}
	payload := placementPayload{
		decisionPayload: decisionPayload{
			Allowed: placement.Decision.Allowed,
			Reason:  string(placement.Decision.Reason),
			Message: placement.Decision.Message,
			Payout:  placement.Payout,
		},
	}
	if !placement.Decision.Allowed {
		ctx.JSON(http.StatusOK, payload)
		return
	}
	round := roundPayloadFor(placement.Round)
	payload.Round = &round
	// The bet is already placed; a failed balance re-read must not report
	// the placement as failed. The balance is simply omitted.
	snapshot, err := server.flow.Snapshot(requestCtx, session)
	if err != nil {
		server.logger.Warn("post-placement snapshot failed", zap.Error(err))
		ctx.JSON(http.StatusOK, payload)
		return
	}
	payload.Balance = snapshot.Balance.Display()
	ctx.JSON(http.StatusOK, payload)
}

func (server *Server) handleRounds(ctx *gin.Context) {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	wallet, err := betflow.NewWalletAddress(claims.Wallet)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "session wallet is not valid"))
		return
	}
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	records, err := server.store.ListRounds(requestCtx, wallet, server.config.HistoryLimit)
	if err != nil {
		server.respondDependencyError(ctx, "round history failed", err)
		return
	}
	rows := make([]roundRecordPayload, 0, len(records))
	for _, record := range records {
		rows = append(rows, roundRecordPayloadFor(record))
	}
	ctx.JSON(http.StatusOK, gin.H{"rounds": rows})
}

func (server *Server) handleAdminCredit(ctx *gin.Context) {
	var request creditRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with address and amount"))
		return
	}
	wallet, err := betflow.NewWalletAddress(request.Address)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_address", "address is not a valid wallet address"))
		return
	}
	if _, err := betflow.NewHouseBalance(request.Amount); err != nil || request.Amount <= 0 {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", "amount must be a positive number"))
		return
	}
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	if _, err := server.store.EnsureProfile(requestCtx, wallet); err != nil {
		server.respondDependencyError(ctx, "profile lookup failed", err)
		return
	}
	profile, err := server.store.CreditBalance(requestCtx, wallet, request.Amount)
	if err != nil {
		server.respondDependencyError(ctx, "credit failed", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"wallet":  profile.Wallet.String(),
		"balance": profile.Balance.Display(),
	})
}

func (server *Server) handleAdminCloseRound(ctx *gin.Context) {
	var request closeRoundRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || request.RoundID == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with round_id"))
		return
	}
	requestCtx, cancel := server.requestContext(ctx)
	defer cancel()
	payout, err := server.rounds.CloseRound(requestCtx, request.RoundID, request.Won)
	if err != nil {
		server.respondDependencyError(ctx, "round close failed", err)
		return
	}
	result := monitoring.ResultLost
	if request.Won {
		result = monitoring.ResultWon
	}
	monitoring.RoundsSettled.WithLabelValues(result).Inc()
	ctx.JSON(http.StatusOK, gin.H{
		"round_id": request.RoundID,
		"won":      request.Won,
		"payout":   betflow.FormatAmount(payout),
	})
}

// sessionFrom rebuilds the domain session from the request's cookie claims.
// Access starts unknown; the snapshot promotes it when the profile shows a
// redeemed code.
func (server *Server) sessionFrom(ctx *gin.Context) betflow.Session {
	claims := getClaims(ctx)
	if claims == nil {
		return betflow.DisconnectedSession()
	}
	wallet, err := betflow.NewWalletAddress(claims.Wallet)
	if err != nil {
		return betflow.DisconnectedSession()
	}
	session := betflow.ConnectedSession(wallet, betflow.AccessUnknown)
	session.SelectedCurrency = claims.Currency
	return session
}

func (server *Server) requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), server.config.RequestTimeout)
}

func (server *Server) adminGuard() gin.HandlerFunc {
	expected := "Bearer " + server.config.AdminToken
	return func(ctx *gin.Context) {
		supplied := ctx.GetHeader("Authorization")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "admin token required"))
			return
		}
		ctx.Next()
	}
}

// respondDependencyError maps collaborator failures onto the error envelope.
// Domain sentinels keep their meaning; everything else is a bad gateway.
func (server *Server) respondDependencyError(ctx *gin.Context, logMessage string, err error) {
	server.logger.Error(logMessage, zap.Error(err))
	switch {
	case errors.Is(err, betflow.ErrInsufficientFunds):
		ctx.JSON(http.StatusConflict, errorResponse("insufficient_funds", "balance no longer covers the stake"))
	case errors.Is(err, betflow.ErrRoundInFlight):
		ctx.JSON(http.StatusConflict, errorResponse("round_in_flight", "a round is already in progress"))
	case errors.Is(err, betflow.ErrRoundConflict):
		ctx.JSON(http.StatusConflict, errorResponse("round_conflict", "round already recorded"))
	case errors.Is(err, betflow.ErrUnknownRound):
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_round", "no such live round"))
	case errors.Is(err, betflow.ErrUnknownProfile):
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_profile", "wallet has no profile"))
	case errors.Is(err, betflow.ErrUnknownTarget):
		ctx.JSON(http.StatusBadRequest, errorResponse("unknown_target", "target is not on the board"))
	case errors.Is(err, betflow.ErrInvalidBetAmount):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", "amount must be a positive number"))
	case errors.Is(err, betflow.ErrNotConnected):
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "connect a wallet first"))
	default:
		ctx.JSON(http.StatusBadGateway, errorResponse("dependency_failed", "a backing service failed"))
	}
}

func countRequests() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		monitoring.HTTPRequests.WithLabelValues(ctx.Request.Method, route).Inc()
	}
}

func getClaims(ctx *gin.Context) *walletauth.Claims {
	claimsValue, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*walletauth.Claims)
	return claims
}

func accessStatus(profile betflow.Profile) betflow.AccessStatus {
	if profile.AccessGranted {
		return betflow.AccessGranted
	}
	return betflow.AccessUnknown
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
