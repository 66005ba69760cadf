package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	gqlschema "github.com/eitanMobb/marinus-sm/internal/graphql"
	"github.com/eitanMobb/marinus-sm/internal/records"
)

const shutdownTimeout = 10 * time.Second

// Pinger is implemented by stores that can report their connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Records *records.Service
	Store   Pinger
	Geo     gqlschema.CountryLookup
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter wires every route onto a fresh mux.
func NewRouter(deps Dependencies) (http.Handler, error) {
	if deps.Records == nil {
		return nil, errors.New("server: records service is required")
	}

	graphQLHandler, err := newGraphQLHandler(deps)
	if err != nil {
		return nil, fmt.Errorf("server: build graphql schema: %w", err)
	}

	ips := &ipRecordHandler{svc: deps.Records}
	health := &healthHandler{store: deps.Store}

	router := http.NewServeMux()
	router.HandleFunc("GET /health", health.live)
	router.HandleFunc("GET /ready", health.ready)
	router.HandleFunc("GET /api/v1.0/version", getVersion)

	router.HandleFunc("GET /api/v1.0/ips", ips.query)
	router.HandleFunc("GET /api/v1.0/ips/count", ips.count)
	router.HandleFunc("POST /api/v1.0/ips/search", ips.search)

	router.Handle("POST /graphql", graphQLHandler)

	log.Debug("Routes opened")
	return enableCORS(router), nil
}

// OpenRoutes serves the API on port until ctx is cancelled, then drains
// in-flight requests.
func OpenRoutes(ctx context.Context, port int, deps Dependencies) error {
	handler, err := NewRouter(deps)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting marinus api on port :%d", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return <-errCh
}
