package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nexus-app/nexus/internal/handler"
	"github.com/nexus-app/nexus/internal/handler/chat"
	"github.com/nexus-app/nexus/internal/handler/execution"
	"github.com/nexus-app/nexus/internal/handler/machine"
	"github.com/nexus-app/nexus/internal/handler/model"
	"github.com/nexus-app/nexus/internal/handler/sshconfig"
	"github.com/nexus-app/nexus/internal/handler/stats"
	"github.com/nexus-app/nexus/internal/logging"
	chatlogic "github.com/nexus-app/nexus/internal/logic/chat"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/websocket"
)

// ServerOptions holds optional settings for the server
type ServerOptions struct {
	Quiet bool // Suppress startup messages for clean CLI output
	// NoMonitor disables the background status monitor.
	NoMonitor bool
}

// Run starts the server on svcCtx.Config.Port and blocks until ctx is
// cancelled or the listener fails.
func Run(ctx context.Context, svcCtx *svc.ServiceContext, opts ServerOptions) error {
	port := svcCtx.Config.Port
	if err := checkPortAvailable(port); err != nil {
		return fmt.Errorf("port %d is already in use - only one Nexus instance allowed per computer", port)
	}

	svcCtx.SetLifetime(ctx)
	go svcCtx.Hub.Run(ctx)
	// An empty schedule turns off background probing; on-demand status still works.
	if !opts.NoMonitor && svcCtx.Config.StatusSchedule != "" {
		if err := svcCtx.Monitor.Start(ctx); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: NewRouter(svcCtx, opts),
		// No Read/WriteTimeout: they would cut hijacked websocket connections.
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	if !opts.Quiet {
		fmt.Printf("Server ready at http://localhost:%d\n", port)
	}
	if !svcCtx.Runner.Ready() {
		logging.Warnf("no API key configured; chat is disabled until one is set")
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	if !opts.Quiet {
		fmt.Println("\nShutting down server gracefully...")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter builds the HTTP routes. It also registers the websocket chat
// handler on svcCtx.Hub.
func NewRouter(svcCtx *svc.ServiceContext, opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	if !opts.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(corsMiddleware())

	r.Get("/health", handler.HealthCheckHandler(svcCtx))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat/send", chat.SendMessageHandler(svcCtx))
		r.Post("/chat/stream", chat.StreamMessageHandler(svcCtx))
		r.Post("/chat/clear", chat.ClearHistoryHandler(svcCtx))

		r.Get("/stats", stats.GetStatsHandler(svcCtx))
		r.Post("/stats/reset", stats.ResetCostHandler(svcCtx))

		r.Get("/model", model.GetModelHandler(svcCtx))
		r.Put("/model", model.SetModelHandler(svcCtx))

		r.Get("/machines/status", machine.MachineStatusHandler(svcCtx))
		r.Post("/machines/exec", machine.ExecHandler(svcCtx))

		r.Get("/ssh-config", sshconfig.GetSSHConfigHandler(svcCtx))
		r.Put("/ssh-config/{machine}", sshconfig.UpdateSSHConfigHandler(svcCtx))

		r.Get("/executions", execution.ListExecutionsHandler(svcCtx))
	})

	chatlogic.RegisterWSHandler(svcCtx)
	r.Get("/ws", websocket.Handler(svcCtx.Hub))

	return r
}

func corsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Only local pages may call the API from a browser.
			if origin != "" && websocket.IsLocalhostOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func checkPortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}
