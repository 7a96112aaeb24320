package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/airchains-network/lottery-dapp/internal/format"
	"github.com/airchains-network/lottery-dapp/lottery"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Lottery is the workflow surface the HTTP front end drives
type Lottery interface {
	View() lottery.View
	Connect(ctx context.Context) error
	Disconnect()
	SelectAccount(ctx context.Context, addr common.Address) error
	Refresh(ctx context.Context) (lottery.UIState, error)
	RefreshBalance(ctx context.Context) error
	StartLottery(ctx context.Context) (*lottery.WorkflowResult, error)
	EnterLottery(ctx context.Context) (*lottery.WorkflowResult, error)
	PickWinner(ctx context.Context) (*lottery.Draw, error)
}

// DrawHistory lists the draws completed in this session
type DrawHistory interface {
	Draws() ([]*lottery.Draw, error)
}

// StateView is the JSON rendering of the workflow view
type StateView struct {
	Connected     bool                  `json:"connected"`
	Account       string                `json:"account,omitempty"`
	ChainID       string                `json:"chainId,omitempty"`
	State         lottery.UIState       `json:"state"`
	Panels        lottery.Panels        `json:"panels"`
	LotteryActive bool                  `json:"lotteryActive"`
	Manager       string                `json:"manager,omitempty"`
	IsManager     bool                  `json:"isManager"`
	BalanceWei    string                `json:"balanceWei,omitempty"`
	Balance       string                `json:"balance,omitempty"`
	Participants  []string              `json:"participants"`
	Status        lottery.Status        `json:"status"`
	Notification  *lottery.Notification `json:"notification,omitempty"`
}

// Options configures the HTTP front end
type Options struct {
	CurrencySymbol string
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer // nil disables /metrics
}

// Server is the gin front end over one workflow
type Server struct {
	lottery Lottery
	draws   DrawHistory
	hub     *Hub
	opts    Options
	log     *logrus.Logger
	cors    *cors.Cors
}

func NewServer(l Lottery, draws DrawHistory, hub *Hub, opts Options, log *logrus.Logger) *Server {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		lottery: l,
		draws:   draws,
		hub:     hub,
		opts:    opts,
		log:     log,
		cors: cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}),
	}
}

// Handler builds the routes, wrapped in CORS handling
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("[GIN] %s - %s %s %d %s\n",
				param.TimeStamp.Format("2006-01-02 15:04:05"),
				param.Method,
				param.Path,
				param.StatusCode,
				param.Latency,
			)
		},
		SkipPaths: []string{"/metrics"},
	}))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/state", s.handleState)
	api.GET("/draws", s.handleDraws)
	api.POST("/connect", s.handleConnect)
	api.POST("/disconnect", s.handleDisconnect)
	api.POST("/account", s.handleAccount)
	api.POST("/refresh", s.handleRefresh)
	api.POST("/refresh-balance", s.handleRefreshBalance)
	api.POST("/start", s.handleStart)
	api.POST("/enter", s.handleEnter)
	api.POST("/pick-winner", s.handlePickWinner)
	api.POST("/notification/dismiss", s.handleDismiss)

	r.GET("/ws", func(c *gin.Context) {
		s.hub.handleWebSocket(c, s.cors.OriginAllowed)
	})
	if s.opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return s.cors.Handler(r)
}

// Start serves until ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Starting lottery front end on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// View renders the workflow view with the display state
func (s *Server) View() *StateView {
	v := s.lottery.View()
	status, note := s.hub.Current()
	out := &StateView{
		Connected:    v.Connected,
		State:        v.State,
		Panels:       v.State.Panels(),
		Participants: []string{},
		Status:       status,
		Notification: note,
	}
	if v.Connected {
		out.Account = v.Account.Hex()
		if v.ChainID != nil {
			out.ChainID = v.ChainID.String()
		}
	}
	if v.Snapshot != nil {
		out.LotteryActive = v.Snapshot.LotteryActive
		if v.Snapshot.Manager != (common.Address{}) {
			out.Manager = v.Snapshot.Manager.Hex()
		}
		out.IsManager = v.Connected && lottery.IsManager(v.Snapshot, v.Account)
		for _, p := range v.Snapshot.Participants {
			out.Participants = append(out.Participants, p.Hex())
		}
	}
	if v.Balance != nil {
		out.BalanceWei = v.Balance.String()
		out.Balance = format.Ether(v.Balance)
		if s.opts.CurrencySymbol != "" {
			out.Balance += " " + s.opts.CurrencySymbol
		}
	}
	return out
}

// PublishState pushes the current view to every front end
func (s *Server) PublishState() {
	s.hub.PublishState(s.View())
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.View())
}

func (s *Server) handleDraws(c *gin.Context) {
	draws, err := s.draws.Draws()
	if err != nil {
		s.log.Errorf("Failed to list draws: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"draws": draws})
}

func (s *Server) handleConnect(c *gin.Context) {
	if err := s.lottery.Connect(c.Request.Context()); err != nil {
		s.respondError(c, err, nil)
		return
	}
	s.respondState(c)
}

func (s *Server) handleDisconnect(c *gin.Context) {
	s.lottery.Disconnect()
	s.respondState(c)
}

func (s *Server) handleAccount(c *gin.Context) {
	var req struct {
		Account string `json:"account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !common.IsHexAddress(req.Account) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account must be a hex address"})
		return
	}
	if err := s.lottery.SelectAccount(c.Request.Context(), common.HexToAddress(req.Account)); err != nil {
		s.respondError(c, err, nil)
		return
	}
	s.respondState(c)
}

func (s *Server) handleRefresh(c *gin.Context) {
	if _, err := s.lottery.Refresh(c.Request.Context()); err != nil {
		s.respondError(c, err, nil)
		return
	}
	s.respondState(c)
}

func (s *Server) handleRefreshBalance(c *gin.Context) {
	if err := s.lottery.RefreshBalance(c.Request.Context()); err != nil {
		s.respondError(c, err, nil)
		return
	}
	s.respondState(c)
}

func (s *Server) handleStart(c *gin.Context) {
	res, err := s.lottery.StartLottery(c.Request.Context())
	if err != nil {
		s.respondError(c, err, res)
		return
	}
	s.respondResult(c, res)
}

func (s *Server) handleEnter(c *gin.Context) {
	res, err := s.lottery.EnterLottery(c.Request.Context())
	if err != nil {
		s.respondError(c, err, res)
		return
	}
	s.respondResult(c, res)
}

func (s *Server) handlePickWinner(c *gin.Context) {
	draw, err := s.lottery.PickWinner(c.Request.Context())
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	s.PublishState()
	c.JSON(http.StatusOK, gin.H{"draw": draw, "state": s.View()})
}

func (s *Server) handleDismiss(c *gin.Context) {
	s.hub.Dismiss()
	s.respondState(c)
}

func (s *Server) respondState(c *gin.Context) {
	s.PublishState()
	c.JSON(http.StatusOK, s.View())
}

func (s *Server) respondResult(c *gin.Context, res *lottery.WorkflowResult) {
	s.PublishState()
	c.JSON(http.StatusOK, gin.H{"result": res, "state": s.View()})
}

func (s *Server) respondError(c *gin.Context, err error, res *lottery.WorkflowResult) {
	kind := lottery.Classify(err)
	body := gin.H{"error": err.Error(), "kind": kind}
	if res != nil {
		body["result"] = res
	}
	c.JSON(statusCode(err, kind), body)
}

func statusCode(err error, kind lottery.Kind) int {
	switch {
	case errors.Is(err, lottery.ErrNotManager), errors.Is(err, lottery.ErrManagerFirst):
		return http.StatusForbidden
	case errors.Is(err, contract.ErrRoundsUnsupported), errors.Is(err, lottery.ErrSelectUnsupported):
		return http.StatusBadRequest
	}
	switch kind {
	case lottery.KindNoProvider:
		return http.StatusServiceUnavailable
	case lottery.KindNotConnected:
		return http.StatusUnauthorized
	case lottery.KindBusy:
		return http.StatusConflict
	case lottery.KindUserRejected:
		return http.StatusForbidden
	case lottery.KindWrongNetwork:
		return http.StatusPreconditionFailed
	case lottery.KindReverted:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
