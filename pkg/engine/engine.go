package engine

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/config"
	"github.com/dougsko/ampd/pkg/logging"
	"github.com/dougsko/ampd/pkg/mqttpub"
	"github.com/dougsko/ampd/pkg/notify"
	"github.com/dougsko/ampd/pkg/panel"
	"github.com/dougsko/ampd/pkg/protocol"
	"github.com/dougsko/ampd/pkg/storage"
)

// Version is reported by STATUS
const Version = "0.3.0"

// ProbeFunc runs a one-shot connection test
type ProbeFunc func(ctx context.Context, host string, port int, opts amp.ProbeOptions) amp.ProbeResult

// CoreEngine owns the amplifier session and everything that consumes its
// events, and serves the line protocol on a Unix socket.
type CoreEngine struct {
	config     *config.Config
	socketPath string
	configPath string
	listener   net.Listener
	running    bool
	mutex      sync.RWMutex
	startTime  time.Time

	dispatcher *amp.Dispatcher
	session    *amp.Session
	panel      *panel.Panel
	logStore   *storage.LogStore
	publisher  *mqttpub.Publisher
	probe      ProbeFunc

	// Optional subscribers that follow the config
	subMu      sync.Mutex
	notifierID string
	mqttID     string
}

// NewCoreEngine creates a new core engine. An empty socketPath disables
// the control socket.
func NewCoreEngine(cfg *config.Config, socketPath, configPath string) (*CoreEngine, error) {
	logStore, err := storage.NewLogStore(cfg.LogBuffer.MaxEntries)
	if err != nil {
		return nil, err
	}

	dispatcher := amp.NewDispatcher()
	e := &CoreEngine{
		config:     cfg,
		socketPath: socketPath,
		configPath: configPath,
		startTime:  time.Now(),
		dispatcher: dispatcher,
		panel:      panel.New(),
		logStore:   logStore,
		probe:      amp.Probe,
	}

	// Panel first so later subscribers see the same order the operator does
	dispatcher.Subscribe("panel", e.panel)
	dispatcher.Subscribe("log-buffer", e.logStore)

	e.session = amp.NewSession(cfg.AmplifierOptions(), dispatcher)
	return e, nil
}

// Start starts the optional subscribers, the Unix socket server and, when
// configured, the first connection attempt.
func (e *CoreEngine) Start() error {
	e.mutex.Lock()
	e.running = true
	cfg := e.config
	e.mutex.Unlock()

	e.applySubscribers(cfg)

	if e.socketPath != "" {
		// Remove existing socket file
		os.Remove(e.socketPath)

		listener, err := net.Listen("unix", e.socketPath)
		if err != nil {
			return fmt.Errorf("failed to create Unix socket: %w", err)
		}
		e.listener = listener

		if err := os.Chmod(e.socketPath, 0660); err != nil {
			logging.Warn("engine", "failed to set socket permissions", map[string]interface{}{"error": err.Error()})
		}

		logging.Info("engine", "control socket listening", map[string]interface{}{"path": e.socketPath})
		go e.acceptConnections()
	}

	if cfg.Amplifier.AutoConnect {
		host, port, password := cfg.AmplifierAddress()
		if err := e.sessionRef().Connect(host, port, password); err != nil {
			return fmt.Errorf("failed to start amplifier connection: %w", err)
		}
	}

	return nil
}

// Stop disconnects from the amplifier and releases everything the engine
// owns. The engine cannot be restarted.
func (e *CoreEngine) Stop() error {
	e.mutex.Lock()
	e.running = false
	e.mutex.Unlock()

	if e.listener != nil {
		e.listener.Close()
	}

	if err := e.sessionRef().Close(); err != nil {
		logging.Warn("engine", "session close failed", map[string]interface{}{"error": err.Error()})
	}

	e.subMu.Lock()
	if e.publisher != nil {
		e.publisher.Close()
	}
	e.subMu.Unlock()

	if err := e.logStore.Close(); err != nil {
		logging.Warn("engine", "log store close failed", map[string]interface{}{"error": err.Error()})
	}

	if e.socketPath != "" {
		os.Remove(e.socketPath)
	}

	return nil
}

// applySubscribers attaches or detaches trip alerts and MQTT to match cfg
func (e *CoreEngine) applySubscribers(cfg *config.Config) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	if cfg.Notify.TripAlerts && e.notifierID == "" {
		e.notifierID = e.dispatcher.Subscribe("trip-alerts", notify.NewTripNotifier())
	} else if !cfg.Notify.TripAlerts && e.notifierID != "" {
		e.dispatcher.Unsubscribe(e.notifierID)
		e.notifierID = ""
	}

	if e.mqttID != "" {
		e.dispatcher.Unsubscribe(e.mqttID)
		e.publisher.Close()
		e.mqttID = ""
		e.publisher = nil
	}
	if cfg.MQTT.Enabled {
		pub := mqttpub.New(mqttpub.Config{
			Broker:   cfg.MQTT.Broker,
			Port:     cfg.MQTT.Port,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err := pub.Connect(); err != nil {
			logging.Error("engine", "mqtt disabled", map[string]interface{}{"error": err.Error()})
			return
		}
		e.publisher = pub
		e.mqttID = e.dispatcher.Subscribe("mqtt", pub)
	}
}

// ApplyConfig switches to a reloaded configuration. A changed amplifier
// target reconnects; changed timing replaces the session.
func (e *CoreEngine) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	e.mutex.Lock()
	old := e.config
	e.config = cfg
	e.mutex.Unlock()

	if logger := logging.GetGlobalLogger(); logger != nil && cfg.Logging.Level != old.Logging.Level {
		logger.SetLevel(logging.ParseLogLevel(cfg.Logging.Level))
	}

	if cfg.Notify != old.Notify || cfg.MQTT != old.MQTT {
		e.applySubscribers(cfg)
	}

	if old.SameTarget(cfg) {
		return nil
	}

	session := e.sessionRef()
	st := session.Status()
	wasActive := st.Connected || st.ReconnectPending || st.State == amp.StateConnecting

	if cfg.Amplifier.Telnet != old.Amplifier.Telnet || cfg.Amplifier.Timing != old.Amplifier.Timing {
		logging.Info("engine", "amplifier options changed, replacing session", nil)
		session.Close()
		session = amp.NewSession(cfg.AmplifierOptions(), e.dispatcher)
		e.mutex.Lock()
		e.session = session
		e.mutex.Unlock()
	}

	if !wasActive && !cfg.Amplifier.AutoConnect {
		return nil
	}
	if cfg.Amplifier.Host == "" {
		return session.Disconnect()
	}

	host, port, password := cfg.AmplifierAddress()
	logging.Info("engine", "amplifier target changed, reconnecting", map[string]interface{}{
		"host": host,
		"port": port,
	})
	return session.Connect(host, port, password)
}

// Config returns the active configuration
func (e *CoreEngine) Config() *config.Config {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.config
}

// ConfigPath returns the file the configuration was loaded from
func (e *CoreEngine) ConfigPath() string {
	return e.configPath
}

// Dispatcher returns the event dispatcher, for live feeds
func (e *CoreEngine) Dispatcher() *amp.Dispatcher {
	return e.dispatcher
}

func (e *CoreEngine) sessionRef() *amp.Session {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.session
}

func (e *CoreEngine) isRunning() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.running
}

// acceptConnections accepts and handles socket connections
func (e *CoreEngine) acceptConnections() {
	for e.isRunning() {
		conn, err := e.listener.Accept()
		if err != nil {
			if e.isRunning() {
				logging.Warn("engine", "socket accept error", map[string]interface{}{"error": err.Error()})
			}
			continue
		}

		go e.handleConnection(conn)
	}
}

// handleConnection handles a single socket connection
func (e *CoreEngine) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			response := protocol.NewErrorResponse(fmt.Sprintf("parse error: %v", err))
			conn.Write([]byte(response.String() + "\n"))
			continue
		}

		response := e.handleCommand(cmd)
		conn.Write([]byte(response.String() + "\n"))

		// Close connection after QUIT command
		if cmd.Type == protocol.CmdQuit {
			break
		}
	}
}

// handleCommand processes a single command
func (e *CoreEngine) handleCommand(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CmdStatus:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"status": e.Status(),
			"panel":  e.Panel(),
		})

	case protocol.CmdConnect:
		host := cmd.StringArg("host")
		port := cmd.IntArg("port", 0)
		if err := e.Connect(host, port, cmd.StringArg("password")); err != nil {
			return protocol.NewErrorResponse(err.Error())
		}
		return ok("connecting")

	case protocol.CmdDisconnect:
		if err := e.Disconnect(); err != nil {
			return protocol.NewErrorResponse(err.Error())
		}
		return ok("disconnected")

	case protocol.CmdSend:
		return result(e.SendCommand(cmd.StringArg("command")), "sent")

	case protocol.CmdBand:
		return result(e.SelectBand(cmd.StringArg("band"), cmd.StringArg("antenna")), "sent")

	case protocol.CmdAntenna:
		return result(e.SelectAntenna(cmd.StringArg("antenna")), "sent")

	case protocol.CmdPower:
		return result(e.SetPower(cmd.StringArg("level")), "sent")

	case protocol.CmdOperate:
		return result(e.Operate(), "sent")

	case protocol.CmdStandby:
		return result(e.Standby(), "sent")

	case protocol.CmdClearTrip:
		return result(e.ClearTrip(), "sent")

	case protocol.CmdTest:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res := e.TestConnection(ctx, cmd.StringArg("host"), cmd.IntArg("port", 0))
		return protocol.NewSuccessResponse(map[string]interface{}{"result": res})

	case protocol.CmdLog:
		entries, err := e.LogEntries(cmd.IntArg("limit", 0))
		if err != nil {
			return protocol.NewErrorResponse(err.Error())
		}
		return protocol.NewSuccessResponse(map[string]interface{}{
			"entries": entries,
			"count":   len(entries),
		})

	case protocol.CmdPing:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"pong": time.Now().Unix(),
		})

	case protocol.CmdQuit:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"message": "goodbye",
		})

	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown command: %s", cmd.Type))
	}
}

func ok(status string) *protocol.Response {
	return protocol.NewSuccessResponse(map[string]interface{}{"status": status})
}

func result(err error, status string) *protocol.Response {
	if err != nil {
		return protocol.NewErrorResponse(err.Error())
	}
	return ok(status)
}
