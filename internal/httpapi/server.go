package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yuqie6/LifeMirror/internal/bootstrap"
	"github.com/yuqie6/LifeMirror/internal/eventbus"
)

// LocalServer 本地回环 API 服务
type LocalServer struct {
	core    *bootstrap.Core
	hub     *eventbus.Hub
	ln      net.Listener
	srv     *http.Server
	baseURL string
}

type Options struct {
	ListenAddr string // e.g. "127.0.0.1:0"
}

// Start 启动本地服务
func Start(ctx context.Context, core *bootstrap.Core, opts Options) (*LocalServer, error) {
	if core == nil {
		return nil, fmt.Errorf("core 不能为空")
	}
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, err
	}

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	baseURL := "http://127.0.0.1:" + portStr

	hub := core.Hub
	if hub == nil {
		hub = eventbus.NewHub()
	}

	api := newAPI(core)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", api.handleHealth)
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		handleSSE(hub, w, r)
	})
	api.registerJSONRoutes(mux)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ls := &LocalServer{
		core:    core,
		hub:     hub,
		ln:      ln,
		srv:     srv,
		baseURL: baseURL,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("本地服务退出", "error", err)
		}
	}()

	slog.Info("本地服务启动", "base_url", baseURL)
	return ls, nil
}

// BaseURL 返回服务地址
func (s *LocalServer) BaseURL() string {
	return s.baseURL
}

// Close 优雅关闭
func (s *LocalServer) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleSSE 把事件总线转发为 Server-Sent Events
func handleSSE(hub *eventbus.Hub, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := hub.Subscribe(r.Context(), 32)
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
