package server

import (
	"net/http"
	"time"

	"SpotiFM/core/content"
	"SpotiFM/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // 必须小于 pongWait
)

// ContentWSHandler 把资源文件变化推送给 websocket 客户端
type ContentWSHandler struct {
	watcher  *content.Watcher
	upgrader websocket.Upgrader
}

// NewContentWSHandler 创建处理器，watcher 为 nil 时返回 503
func NewContentWSHandler(watcher *content.Watcher) *ContentWSHandler {
	return &ContentWSHandler{
		watcher: watcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP GET /ws/content
func (h *ContentWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		http.Error(w, "content watching disabled", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	changes, cancel := h.watcher.Subscribe()
	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, changes, done)
	cancel()
}

// readPump 只用来处理 pong 和检测断开
func (h *ContentWSHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("content websocket closed", logger.ErrorField(err))
			}
			return
		}
	}
}

func (h *ContentWSHandler) writePump(conn *websocket.Conn, changes <-chan content.Change, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case change, ok := <-changes:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(change); err != nil {
				logger.Debug("content websocket write failed", logger.ErrorField(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
