package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dougsko/ampd/pkg/client"
	"github.com/dougsko/ampd/pkg/config"
	"github.com/dougsko/ampd/pkg/engine"
	"github.com/dougsko/ampd/pkg/logging"
	"github.com/gin-gonic/gin"
)

// AmpDaemon wires the core engine to the web API, the websocket feed and
// the config watcher.
type AmpDaemon struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Core components
	coreEngine   *engine.CoreEngine
	socketClient *client.SocketClient
	webServer    *http.Server
	hub          *Hub
	watcher      *ConfigWatcher

	configPath string
	socketPath string
}

// NewAmpDaemon creates a new daemon instance
func NewAmpDaemon(cfg *config.Config, configPath string) (*AmpDaemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	socketPath := cfg.API.UnixSocket

	coreEngine, err := engine.NewCoreEngine(cfg, socketPath, configPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create core engine: %w", err)
	}

	daemon := &AmpDaemon{
		ctx:          ctx,
		cancel:       cancel,
		coreEngine:   coreEngine,
		socketClient: client.NewSocketClient(socketPath),
		configPath:   configPath,
		socketPath:   socketPath,
	}

	daemon.hub = NewHub(coreEngine)
	coreEngine.Dispatcher().Subscribe("websocket", daemon.hub)

	addr := fmt.Sprintf("%s:%d", cfg.Web.BindAddress, cfg.Web.Port)
	daemon.webServer = &http.Server{
		Addr:    addr,
		Handler: daemon.setupRouter(),
	}

	return daemon, nil
}

// Start starts the daemon
func (d *AmpDaemon) Start() error {
	logging.Info("daemon", "Starting ampd daemon...")

	if err := d.coreEngine.Start(); err != nil {
		return fmt.Errorf("failed to start core engine: %w", err)
	}

	if d.socketPath != "" {
		// Wait a moment for socket to be ready
		time.Sleep(100 * time.Millisecond)

		if !d.socketClient.IsConnected() {
			return fmt.Errorf("failed to connect to core engine socket")
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		logging.Info("daemon", fmt.Sprintf("Starting web server on %s", d.webServer.Addr))
		if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("daemon", fmt.Sprintf("Web server error: %v", err))
		}
	}()

	if d.configPath != "" {
		watcher, err := NewConfigWatcher(d.configPath, d.reloadConfig)
		if err != nil {
			logging.Warn("daemon", "config hot reload disabled", map[string]interface{}{"error": err.Error()})
		} else {
			d.watcher = watcher
		}
	}

	return nil
}

// Stop stops the daemon gracefully
func (d *AmpDaemon) Stop() error {
	logging.Info("daemon", "Stopping daemon...")

	d.cancel()

	if d.watcher != nil {
		d.watcher.Close()
	}

	if d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			logging.Warn("daemon", fmt.Sprintf("Web server shutdown error: %v", err))
		}
	}

	d.hub.Close()

	if err := d.coreEngine.Stop(); err != nil {
		logging.Warn("daemon", fmt.Sprintf("Core engine shutdown error: %v", err))
	}

	d.wg.Wait()

	logging.Info("daemon", "Daemon stopped")
	return nil
}

// reloadConfig applies a changed configuration file
func (d *AmpDaemon) reloadConfig(cfg *config.Config) error {
	if err := d.coreEngine.ApplyConfig(cfg); err != nil {
		return err
	}
	logging.Info("daemon", "configuration reloaded", map[string]interface{}{"path": d.configPath})
	return nil
}

// setupRouter builds the gin router with all routes
func (d *AmpDaemon) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/ws", d.hub.ServeWS)

	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.GET("/panel", d.handleGetPanel)
		api.POST("/connect", d.handleConnect)
		api.POST("/disconnect", d.handleDisconnect)
		api.POST("/command", d.handleCommand)
		api.POST("/band", d.handleSelectBand)
		api.POST("/antenna", d.handleSelectAntenna)
		api.POST("/power", d.handleSetPower)
		api.POST("/operate", d.handleOperate)
		api.POST("/standby", d.handleStandby)
		api.POST("/trip/clear", d.handleClearTrip)
		api.POST("/test", d.handleTestConnection)
		api.GET("/log", d.handleGetLog)
		api.GET("/log/stats", d.handleGetLogStats)
		api.DELETE("/log", d.handleClearLog)
		api.GET("/bands", d.handleGetBands)
		api.POST("/config/reload", d.handleReloadConfig)
	}

	return router
}

// requestLogger routes gin access logs through the component logger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("http", "request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}
