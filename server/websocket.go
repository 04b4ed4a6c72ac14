package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/pkg/pipeline"
	"go.uber.org/zap"
)

// Message is the websocket envelope in both directions. Clients send
// {"type":"analyze"} with a base64 file in Content; the server answers with
// status, progress, report and error messages.
type Message struct {
	Type         string `json:"type"`
	Content      string `json:"content,omitempty"`
	Filename     string `json:"filename,omitempty"`
	AnalysisType string `json:"analysis_type,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (c *wsConn) send(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debug("error sending message", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (c *wsConn) sendMessage(msgType, content string) {
	c.send(Message{Type: msgType, Content: content})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// base64 grows the payload by a third
	conn.SetReadLimit(s.config.Analyzer.MaxUploadBytes()*4/3 + multipartOverhead)

	c := &wsConn{conn: conn, logger: s.logger}
	slots := make(chan struct{}, s.config.MaxAnalysesPerConn)
	var wg sync.WaitGroup
	defer wg.Wait()

	// cancelled before waiting so in-flight analyses stop with the connection
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("error reading message", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendMessage("error", "Invalid message")
			continue
		}

		if msg.Type != "analyze" {
			c.sendMessage("error", "Unknown message type: "+msg.Type)
			continue
		}

		select {
		case slots <- struct{}{}:
		default:
			c.sendMessage("error", "Too many analyses in progress on this connection")
			continue
		}

		wg.Add(1)
		go func() {
			defer func() {
				<-slots
				wg.Done()
			}()
			s.handleAnalyze(ctx, c, msg)
		}()
	}
}

func (s *Server) handleAnalyze(ctx context.Context, c *wsConn, msg Message) {
	data, err := base64.StdEncoding.DecodeString(msg.Content)
	if err != nil {
		c.sendMessage("error", "File content must be base64 encoded")
		return
	}

	c.sendMessage("status", "Analyzing "+msg.Filename)

	report, err := s.config.Analyzer.Run(ctx, pipeline.Request{
		Data:     data,
		Filename: msg.Filename,
		Mode:     models.AnalysisMode(msg.AnalysisType),
		Progress: func(done, total int) {
			c.send(Message{Type: "progress", Data: Progress{Done: done, Total: total}})
		},
	})
	if err != nil {
		_, detail := errorResponse(err)
		c.sendMessage("error", detail)
		return
	}

	c.send(Message{Type: "report", Data: report})
}
