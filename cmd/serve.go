package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/vincar/vinmcp/internal/config"
	"github.com/vincar/vinmcp/internal/vehicle"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit_vehicle_safety MCP server over SSE",
	Long: `Run an MCP server exposing the audit_vehicle_safety tool over the
HTTP+SSE transport. Clients open GET /sse and POST JSON-RPC requests to the
endpoint announced on the stream.

Every flag can also be set through the environment, e.g. VINMCP_ADDR=:9876.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	config.RegisterServerFlags(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServer(cmd.Flags())
	if err != nil {
		return err
	}

	handler := newServerHandler(cfg)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler.router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Starting SSE server on %s", cfg.Addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-shutdown:
		log.Println("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// SSE streams never finish on their own, so close them before draining.
	if err := handler.sse.Shutdown(ctx); err != nil {
		log.Printf("SSE shutdown: %v", err)
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

type serverHandler struct {
	sse    *server.SSEServer
	router *mux.Router
}

// newServerHandler wires the MCP server and its SSE transport onto a router.
// The endpoint event carries a relative path so clients can join it to the
// address they connected to.
func newServerHandler(cfg *config.ServerConfig) *serverHandler {
	audit := vehicle.NewClient(cfg.VPICURL, cfg.RecallsURL, cfg.HTTPTimeout)

	s := server.NewMCPServer("vin-car-mcp", "1.0.0", server.WithToolCapabilities(true))
	s.AddTool(vehicle.Tool(), audit.Handler)

	opts := []server.SSEOption{
		server.WithUseFullURLForMessageEndpoint(false),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, server.WithBaseURL(cfg.BaseURL))
	}
	sse := server.NewSSEServer(s, opts...)

	router := mux.NewRouter()
	router.Handle("/sse", sse.SSEHandler()).Methods(http.MethodGet)
	router.Handle("/message", sse.MessageHandler()).Methods(http.MethodPost)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return &serverHandler{sse: sse, router: router}
}
