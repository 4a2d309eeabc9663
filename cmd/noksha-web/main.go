// Command noksha-web serves the Noksha design wizard API on a local port,
// optionally together with a built frontend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/noksha/internal/api"
	"github.com/fpang/noksha/internal/app"
	"github.com/fpang/noksha/internal/cli"
	"github.com/fpang/noksha/internal/config"
	"github.com/fpang/noksha/internal/logging"
)

// Set via -ldflags at build time.
var (
	commitHash = "dev"
	buildTime  = "unknown"
)

// CLI flags
var (
	portFlag   int
	configFlag string
	staticFlag string
)

var rootCmd = &cobra.Command{
	Use:   "noksha-web",
	Short: "Web server for the Noksha design wizard",
	Long: `Noksha Web starts a local HTTP server exposing the design wizard:
style and quiz steps, design generation, masked recoloring and the saved
design history.

Examples:
  noksha-web
  noksha-web --port 9090
  noksha-web --config noksha.yaml --static ./frontend/dist`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.Flags().StringVar(&configFlag, "config", "", "Path to YAML config (default $"+config.PathEnv+")")
	rootCmd.Flags().StringVar(&staticFlag, "static", "", "Directory of a built frontend to serve at /")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load(configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := cli.InitGeminiClient(ctx, cfg.Provider.TextModel)
	a, err := app.New(ctx, cfg, client.Models, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	sessions := a.NewRegistry()
	defer sessions.CloseAll()
	go sessions.RunSweeper(ctx, app.SweepInterval)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewServer(sessions, a.History).Handler())
	if staticFlag != "" {
		mux.Handle("/", spaHandler(os.DirFS(staticFlag)))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	startup := logging.NewStartupLogger("noksha-web").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Storage("history", cfg.Storage.Type).
		Model("image", cfg.Provider.ImageModel).
		Model("text", cfg.Provider.TextModel).
		Feature("static", staticFlag != "").
		Feature("imagen", cfg.Provider.RecolorBackend == config.RecolorImagen)
	for k, v := range cfg.Summary() {
		startup.Config(k, v)
	}
	startup.InitDuration(time.Since(initStart)).Log()

	log.Info().Int("port", cfg.Server.Port).Msg("Starting web server")
	fmt.Printf("\n  Noksha: http://localhost:%d\n\n", cfg.Server.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// spaHandler serves files from root and falls back to index.html for
// client-side routes.
func spaHandler(root fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' blob: data: https://picsum.photos; style-src 'self' 'unsafe-inline'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if path := r.URL.Path; path != "/" {
			f, err := root.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}
