package backtest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"alphatrade/internal/logger"
	"alphatrade/internal/market"
	"alphatrade/internal/mm"
	"alphatrade/internal/quote"
)

// HTTPServer 提供 Gin 接口：补数、查数、回测任务与报价预览。
type HTTPServer struct {
	addr   string
	svc    *market.Service
	sim    *Simulator
	router *gin.Engine
}

type HTTPConfig struct {
	Addr      string
	Market    *market.Service
	Simulator *Simulator
}

func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Market == nil {
		return nil, errors.New("market service 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &HTTPServer{
		addr:   cfg.Addr,
		svc:    cfg.Market,
		sim:    cfg.Simulator,
		router: router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *HTTPServer) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	data := s.router.Group("/api/data")
	data.POST("/fetch", s.handleFetch)
	data.GET("/fetch/:id", s.handleFetchStatus)
	data.GET("/jobs", s.handleJobs)
	data.GET("/manifest", s.handleManifest)
	data.GET("/candles", s.handleCandles)

	bt := s.router.Group("/api/backtest")
	bt.POST("/runs", s.handleRunStart)
	bt.GET("/runs", s.handleRunList)
	bt.GET("/runs/:id", s.handleRunDetail)

	q := s.router.Group("/api/quote")
	q.POST("/preview", s.handleQuotePreview)
}

func (s *HTTPServer) handleFetch(c *gin.Context) {
	var req struct {
		Exchange  string `json:"exchange"`
		Symbol    string `json:"symbol" binding:"required"`
		Timeframe string `json:"timeframe" binding:"required"`
		StartTS   int64  `json:"start_ts" binding:"required"`
		EndTS     int64  `json:"end_ts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job, err := s.svc.SubmitFetch(market.FetchParams{
		Exchange:  req.Exchange,
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Start:     req.StartTS,
		End:       req.EndTS,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (s *HTTPServer) handleFetchStatus(c *gin.Context) {
	job, ok := s.svc.JobSnapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (s *HTTPServer) handleJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.svc.JobsSnapshot()})
}

func (s *HTTPServer) handleManifest(c *gin.Context) {
	symbol := c.Query("symbol")
	tf := c.Query("timeframe")
	if symbol == "" || tf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol/timeframe 必填"})
		return
	}
	info, err := s.svc.ManifestInfo(c.Request.Context(), symbol, tf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifest": info})
}

func (s *HTTPServer) handleCandles(c *gin.Context) {
	symbol := c.Query("symbol")
	tf := c.Query("timeframe")
	start, _ := strconv.ParseInt(c.Query("start"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end"), 10, 64)
	if symbol == "" || tf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol/timeframe 必填"})
		return
	}
	candles, err := s.svc.Candles(c.Request.Context(), symbol, tf, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candles": candles, "count": len(candles)})
}

func (s *HTTPServer) handleRunStart(c *gin.Context) {
	if s.sim == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulator 未启用"})
		return
	}
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := s.sim.StartRun(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

func (s *HTTPServer) handleRunList(c *gin.Context) {
	if s.sim == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulator 未启用"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": s.sim.RunsSnapshot()})
}

func (s *HTTPServer) handleRunDetail(c *gin.Context) {
	if s.sim == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulator 未启用"})
		return
	}
	run, ok := s.sim.RunSnapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// handleQuotePreview 按给定参数即时计算一组双边报价。
func (s *HTTPServer) handleQuotePreview(c *gin.Context) {
	var req struct {
		RiskAversion      float64 `json:"risk_aversion" binding:"required"`
		Volatility        float64 `json:"volatility" binding:"required"`
		ArrivalRate       float64 `json:"arrival_rate" binding:"required"`
		ReservationSpread float64 `json:"reservation_spread" binding:"required"`
		TimeHorizon       float64 `json:"time_horizon"`
		MidPrice          float64 `json:"mid_price" binding:"required"`
		Inventory         float64 `json:"inventory"`
		MaxInventory      float64 `json:"max_inventory" binding:"required"`
		BaseQuantity      float64 `json:"base_quantity" binding:"required"`
		TimeToMaturity    float64 `json:"time_to_maturity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	model, err := quote.NewModel(quote.Params{
		RiskAversion:      req.RiskAversion,
		Volatility:        req.Volatility,
		ArrivalRate:       req.ArrivalRate,
		ReservationSpread: req.ReservationSpread,
		TimeHorizon:       req.TimeHorizon,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bid, ask, err := model.OptimalSpread(req.MidPrice, req.Inventory, req.TimeToMaturity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bidQty, askQty, err := model.OptimalQuantities(req.MidPrice, req.Inventory, req.MaxInventory, req.BaseQuantity, req.TimeToMaturity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := mm.CheckInventoryLimits(req.Inventory, req.MaxInventory, 0)
	c.JSON(http.StatusOK, gin.H{
		"bid":          bid,
		"ask":          ask,
		"bid_quantity": bidQty,
		"ask_quantity": askQty,
		"inventory":    status,
	})
}

// Start 启动 HTTP 服务并随 ctx 优雅退出。
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("[http] 关闭异常: %v", err)
		}
	}()

	logger.Infof("[http] 监听 %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router 暴露路由，便于测试。
func (s *HTTPServer) Router() http.Handler {
	return s.router
}
