package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/roiscan/internal/capture"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scan"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsMaxMessageMB = 32
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketRequest is a client message. Which fields are used depends on Type:
//
//	down, move  X, Y touch position in view coordinates
//	frame       Image holds encoded image bytes (base64 in JSON)
//	region      Region replaces the scan region
//	scan        runs one scan over the latest frame
//	pause       unbinds the camera feed
//	resume      binds it again
type WebSocketRequest struct {
	Type   string             `json:"type"`
	X      float64            `json:"x,omitempty"`
	Y      float64            `json:"y,omitempty"`
	Image  []byte             `json:"image,omitempty"`
	Region *region.ScanRegion `json:"region,omitempty"`
}

// WebSocketResponse is a server message.
type WebSocketResponse struct {
	Type    string             `json:"type"`
	Region  *region.ScanRegion `json:"region,omitempty"`
	Axis    string             `json:"axis,omitempty"`
	Result  *scan.Result       `json:"result,omitempty"`
	Message string             `json:"message,omitempty"`
	Error   string             `json:"error,omitempty"`
	Code    string             `json:"code,omitempty"`
	State   string             `json:"state,omitempty"`
}

// scanWebSocketHandler handles live camera sessions over WebSocket.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "recognition engine not configured", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection runs the read loop for one connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(wsMaxMessageMB * 1024 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	ws := s.newWSSession(&lockedConn{conn: conn})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer ws.close()

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ws.out.ping(); err != nil {
					return
				}
			}
		}
	}()

	if err := ws.start(ctx); err != nil {
		ws.sendError(err)
		return
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			ws.handle(ctx, data)
		}
	}
}

// lockedConn serializes writes from the read loop, scans and pings.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *lockedConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

func (c *lockedConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

type pinger interface {
	WebSocketConnWriter
	ping() error
}

// wsSession is the per-connection scanning state: a pushed camera feed, its
// session and the user's scan region.
type wsSession struct {
	out     pinger
	feed    *capture.Feed
	session *capture.Session
	regions *region.Controller
	orch    *scan.Orchestrator
	scans   sync.WaitGroup
}

func (s *Server) newWSSession(out pinger) *wsSession {
	feed := capture.NewFeed()
	session := capture.NewSession(feed, capture.StaticPermission(true))
	regions := region.NewController(s.region)
	ws := &wsSession{
		out:     out,
		feed:    feed,
		session: session,
		regions: regions,
	}
	ws.orch = scan.New(session, regions, s.transform, s.engine, scan.WithObserver(scanMetrics("websocket")))
	return ws
}

// start binds the feed and reports readiness once the first frame arrives.
func (ws *wsSession) start(ctx context.Context) error {
	if err := ws.session.Start(ctx); err != nil {
		return err
	}
	ws.watchReady(ctx)
	snap := ws.regions.Snapshot()
	ws.send(WebSocketResponse{Type: "region", Region: &snap})
	return nil
}

func (ws *wsSession) watchReady(ctx context.Context) {
	ready := ws.session.Ready()
	go func() {
		select {
		case <-ready:
			ws.send(WebSocketResponse{Type: "ready", State: ws.session.State().String()})
		case <-ctx.Done():
		}
	}()
}

func (ws *wsSession) close() {
	ws.scans.Wait()
	if err := ws.session.Stop(); err != nil {
		slog.Warn("Failed to stop capture session", "error", err)
	}
}

func (ws *wsSession) handle(ctx context.Context, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ws.send(WebSocketResponse{Type: "error", Error: fmt.Sprintf("Failed to parse request: %v", err)})
		return
	}

	switch req.Type {
	case "down":
		ws.regions.TouchDown(req.X, req.Y)
	case "move":
		axis := ws.regions.TouchMove(req.X, req.Y)
		if axis != region.AxisNone {
			regionResizesTotal.WithLabelValues(axis.String()).Inc()
		}
		snap := ws.regions.Snapshot()
		ws.send(WebSocketResponse{Type: "region", Region: &snap, Axis: axis.String()})
	case "region":
		if req.Region == nil {
			ws.send(WebSocketResponse{Type: "error", Error: "region message without region"})
			return
		}
		if err := validateRegion(*req.Region); err != nil {
			ws.send(WebSocketResponse{Type: "error", Error: err.Error()})
			return
		}
		snap := ws.regions.SetRegion(*req.Region)
		ws.send(WebSocketResponse{Type: "region", Region: &snap})
	case "frame":
		img, err := imaging.Decode(bytes.NewReader(req.Image), imaging.AutoOrientation(true))
		if err != nil {
			ws.send(WebSocketResponse{Type: "error", Error: "Invalid image format"})
			return
		}
		if err := ws.feed.Push(img); err != nil {
			ws.send(WebSocketResponse{Type: "error", Error: err.Error()})
		}
	case "scan":
		ws.scans.Add(1)
		go func() {
			defer ws.scans.Done()
			ws.runScan(ctx)
		}()
	case "pause":
		if err := ws.session.Pause(); err != nil {
			ws.sendError(err)
			return
		}
		ws.send(WebSocketResponse{Type: "state", State: ws.session.State().String()})
	case "resume":
		if err := ws.session.Resume(ctx); err != nil {
			ws.sendError(err)
			return
		}
		ws.watchReady(ctx)
		ws.send(WebSocketResponse{Type: "state", State: ws.session.State().String()})
	default:
		ws.send(WebSocketResponse{Type: "error", Error: "Unsupported request type: " + req.Type})
	}
}

func (ws *wsSession) runScan(ctx context.Context) {
	oc := <-ws.orch.ScanAsync(ctx)
	if oc.Err != nil {
		if ctx.Err() != nil {
			return
		}
		ws.send(WebSocketResponse{
			Type:    "scan_result",
			Message: scan.FailureMessage(oc.Err),
			Error:   oc.Err.Error(),
			Code:    string(scanerr.CodeOf(oc.Err)),
		})
		return
	}
	ws.send(WebSocketResponse{Type: "scan_result", Result: oc.Result, Message: oc.Result.Message()})
}

func (ws *wsSession) sendError(err error) {
	ws.send(WebSocketResponse{Type: "error", Error: err.Error(), Code: string(scanerr.CodeOf(err))})
}

func (ws *wsSession) send(resp WebSocketResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := ws.out.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
