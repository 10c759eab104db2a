package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/config"
	"github.com/dougsko/ampd/pkg/engine"
	"github.com/dougsko/ampd/pkg/panel"
	"github.com/gin-gonic/gin"
)

// errorStatus maps engine errors to HTTP status codes
func errorStatus(err error) int {
	var cfgErr *amp.ConfigurationError
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, engine.ErrInvalidSelection), errors.Is(err, amp.ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, amp.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, amp.ErrSendQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respond(c *gin.Context, err error) {
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGetStatus returns session and panel state
func (d *AmpDaemon) handleGetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": d.coreEngine.Status(),
		"panel":  d.coreEngine.Panel(),
	})
}

// handleGetPanel returns the front panel only
func (d *AmpDaemon) handleGetPanel(c *gin.Context) {
	c.JSON(http.StatusOK, d.coreEngine.Panel())
}

// handleConnect connects to the given or configured amplifier
func (d *AmpDaemon) handleConnect(c *gin.Context) {
	var req struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Password string `json:"password"`
	}

	// An empty body means the configured amplifier
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := d.coreEngine.Connect(req.Host, req.Port, req.Password); err != nil {
		respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "connecting"})
}

// handleDisconnect closes the amplifier connection
func (d *AmpDaemon) handleDisconnect(c *gin.Context) {
	respond(c, d.coreEngine.Disconnect())
}

// handleCommand sends a raw device token
func (d *AmpDaemon) handleCommand(c *gin.Context) {
	var req struct {
		Command string `json:"command" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	respond(c, d.coreEngine.SendCommand(req.Command))
}

// handleSelectBand switches band and optionally antenna
func (d *AmpDaemon) handleSelectBand(c *gin.Context) {
	var req struct {
		Band    string `json:"band" binding:"required"`
		Antenna string `json:"antenna"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	respond(c, d.coreEngine.SelectBand(req.Band, req.Antenna))
}

// handleSelectAntenna switches antenna on the current band
func (d *AmpDaemon) handleSelectAntenna(c *gin.Context) {
	var req struct {
		Antenna string `json:"antenna" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	respond(c, d.coreEngine.SelectAntenna(req.Antenna))
}

// handleSetPower selects the output power level
func (d *AmpDaemon) handleSetPower(c *gin.Context) {
	var req struct {
		Level string `json:"level" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	respond(c, d.coreEngine.SetPower(req.Level))
}

func (d *AmpDaemon) handleOperate(c *gin.Context) {
	respond(c, d.coreEngine.Operate())
}

func (d *AmpDaemon) handleStandby(c *gin.Context) {
	respond(c, d.coreEngine.Standby())
}

func (d *AmpDaemon) handleClearTrip(c *gin.Context) {
	respond(c, d.coreEngine.ClearTrip())
}

// handleTestConnection probes an amplifier without touching the session
func (d *AmpDaemon) handleTestConnection(c *gin.Context) {
	var req struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, d.coreEngine.TestConnection(ctx, req.Host, req.Port))
}

// handleGetLog returns the operator log, oldest first
func (d *AmpDaemon) handleGetLog(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", limitStr)})
		return
	}

	entries, err := d.coreEngine.LogEntries(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

func (d *AmpDaemon) handleGetLogStats(c *gin.Context) {
	stats, err := d.coreEngine.LogStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (d *AmpDaemon) handleClearLog(c *gin.Context) {
	if err := d.coreEngine.ClearLog(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// handleGetBands lists selectable bands and antennas
func (d *AmpDaemon) handleGetBands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"bands":    panel.Bands,
		"antennas": panel.Antennas,
	})
}

// handleReloadConfig re-reads the configuration file on request
func (d *AmpDaemon) handleReloadConfig(c *gin.Context) {
	if d.configPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "daemon was started without a config file"})
		return
	}

	cfg, err := config.LoadConfig(d.configPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := d.reloadConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}
