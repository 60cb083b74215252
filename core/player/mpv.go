package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"SpotiFM/logger"
)

// MPVOptions configures the mpv-backed player.
type MPVOptions struct {
	Path           string
	IPCPath        string
	DisableProcess bool // 只连接已存在的 IPC socket，测试用
	Dial           func(ctx context.Context, network, addr string) (net.Conn, error)
}

// MPV 通过 JSON IPC 控制一个 mpv --idle 进程
type MPV struct {
	opts   MPVOptions
	cmd    *exec.Cmd
	closed atomic.Bool

	writeMu sync.Mutex
	conn    net.Conn

	mu         sync.Mutex
	media      string
	paused     bool
	idle       bool
	positionMs int64
	durationMs int64
	listeners  listeners
	playing    bool
}

// NewMPV 创建播放器，调用 Start 后才可用
func NewMPV(opts MPVOptions) *MPV {
	if opts.Path == "" {
		opts.Path = "mpv"
	}
	if opts.IPCPath == "" {
		opts.IPCPath = filepath.Join(os.TempDir(), "spotifm-mpv.sock")
	}
	return &MPV{opts: opts, paused: true, idle: true}
}

// Start launches mpv (unless disabled) and connects to the IPC socket.
func (m *MPV) Start(ctx context.Context) error {
	if !m.opts.DisableProcess {
		_ = os.Remove(m.opts.IPCPath)
		m.cmd = exec.CommandContext(ctx, m.opts.Path,
			"--idle=yes",
			"--force-window=no",
			"--no-terminal",
			"--no-video",
			"--pause",
			"--input-ipc-server="+m.opts.IPCPath,
		)
		if err := m.cmd.Start(); err != nil {
			return fmt.Errorf("start mpv: %w", err)
		}
		logger.Debug("mpv process started", logger.Int("pid", m.cmd.Process.Pid))
	}

	if err := m.connect(ctx); err != nil {
		return err
	}
	for i, prop := range []string{"time-pos", "duration", "pause", "idle-active"} {
		if err := m.send("observe_property", i+1, prop); err != nil {
			return fmt.Errorf("observe %s: %w", prop, err)
		}
	}
	go m.readLoop()
	return nil
}

func (m *MPV) connect(ctx context.Context) error {
	dial := m.opts.Dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: 5 * time.Second}).DialContext
	}

	// mpv 创建 socket 需要一点时间
	delay := 50 * time.Millisecond
	var err error
	for attempt := 0; attempt < 10; attempt++ {
		var conn net.Conn
		conn, err = dial(ctx, "unix", m.opts.IPCPath)
		if err == nil {
			m.writeMu.Lock()
			m.conn = conn
			m.writeMu.Unlock()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connect mpv ipc: %w", ctx.Err())
		case <-time.After(delay):
		}
		if delay < 500*time.Millisecond {
			delay *= 2
		}
	}
	return fmt.Errorf("connect mpv ipc: %w", err)
}

func (m *MPV) send(args ...any) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.conn == nil {
		return fmt.Errorf("mpv not connected")
	}
	b, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return err
	}
	_, err = m.conn.Write(append(b, '\n'))
	return err
}

// SetMedia 记录待加载的媒体地址
func (m *MPV) SetMedia(uri string) error {
	m.mu.Lock()
	m.media = uri
	m.positionMs = 0
	m.durationMs = 0
	m.mu.Unlock()
	return nil
}

// Prepare 以暂停状态加载媒体
func (m *MPV) Prepare() error {
	m.mu.Lock()
	media := m.media
	m.mu.Unlock()
	if media == "" {
		return fmt.Errorf("no media set")
	}
	if err := m.send("set_property", "pause", true); err != nil {
		return err
	}
	return m.send("loadfile", media, "replace")
}

func (m *MPV) Play() error {
	return m.send("set_property", "pause", false)
}

func (m *MPV) Pause() error {
	return m.send("set_property", "pause", true)
}

func (m *MPV) SeekTo(positionMs int64) error {
	return m.send("seek", float64(positionMs)/1000, "absolute")
}

func (m *MPV) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *MPV) CurrentPosition() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionMs
}

func (m *MPV) Duration() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durationMs
}

func (m *MPV) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners.add(l)
	m.mu.Unlock()
}

func (m *MPV) RemoveListener(l Listener) {
	m.mu.Lock()
	m.listeners.remove(l)
	m.mu.Unlock()
}

// Close 退出 mpv 并关闭连接
func (m *MPV) Close() error {
	m.closed.Store(true)
	m.writeMu.Lock()
	if m.conn != nil {
		b, _ := json.Marshal(map[string]any{"command": []any{"quit"}})
		_, _ = m.conn.Write(append(b, '\n'))
		_ = m.conn.Close()
		m.conn = nil
	}
	m.writeMu.Unlock()

	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
		m.cmd = nil
	}
	return nil
}

type ipcMessage struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
}

func (m *MPV) readLoop() {
	m.writeMu.Lock()
	conn := m.conn
	m.writeMu.Unlock()
	if conn == nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			m.fireError(fmt.Errorf("decode mpv message: %w", err))
			continue
		}
		switch msg.Event {
		case "property-change":
			m.handleProperty(msg)
		case "end-file":
			if msg.Reason == "error" {
				m.fireError(fmt.Errorf("mpv playback error: %s", msg.FileError))
			}
		}
	}
	if err := scanner.Err(); err != nil && !m.closed.Load() {
		m.fireError(fmt.Errorf("mpv ipc: %w", err))
	}
}

func (m *MPV) handleProperty(msg ipcMessage) {
	m.mu.Lock()
	switch msg.Name {
	case "time-pos":
		var sec float64
		if json.Unmarshal(msg.Data, &sec) == nil {
			m.positionMs = int64(sec * 1000)
		}
	case "duration":
		var sec float64
		if json.Unmarshal(msg.Data, &sec) == nil {
			m.durationMs = int64(sec * 1000)
		}
	case "pause":
		_ = json.Unmarshal(msg.Data, &m.paused)
	case "idle-active":
		_ = json.Unmarshal(msg.Data, &m.idle)
	}

	playing := !m.paused && !m.idle
	changed := playing != m.playing
	m.playing = playing
	ls := m.listeners.snapshot()
	m.mu.Unlock()

	if changed {
		for _, l := range ls {
			l.OnIsPlayingChanged(playing)
		}
	}
}

func (m *MPV) fireError(err error) {
	logger.Warn("mpv error", logger.ErrorField(err))
	m.mu.Lock()
	ls := m.listeners.snapshot()
	m.mu.Unlock()
	for _, l := range ls {
		l.OnPlayerError(err)
	}
}
