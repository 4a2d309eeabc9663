// Package main provides the Lambda entry point for the Noksha API.
//
// It serves the same handler as noksha-web behind API Gateway (HTTP API,
// payload v2). Sessions live in the memory of one execution environment,
// so the frontend must be pinned to a single concurrency slot or accept
// that a cold start forgets in-progress wizards. Saved designs go to S3 or
// DynamoDB and survive.
//
// Background work freezes between invocations. Clients therefore send the
// final quiz answer with ?wait=1, which holds the request until the design
// is ready.
package main

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/api"
	"github.com/fpang/noksha/internal/app"
	"github.com/fpang/noksha/internal/auth"
	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/config"
	"github.com/fpang/noksha/internal/lambdaboot"
	"github.com/fpang/noksha/internal/logging"
)

// Build-time version identity, injected via -ldflags:
//
//	go build -ldflags="-X main.commitHash=${COMMIT_HASH} -X main.buildTime=$(date -u +%Y%m%dT%H%M%SZ)"
var (
	commitHash = "dev"
	buildTime  = "unknown"
)

var (
	handler  http.Handler
	sessions *api.Registry
)

func init() {
	initStart := time.Now()
	logging.Init()
	ctx := context.Background()

	clients := lambdaboot.InitAWS()
	if err := lambdaboot.LoadGeminiKey(ctx, clients.SSM); err != nil {
		log.Fatal().Err(err).Str("param", lambdaboot.APIKeyParam()).Msg("Failed to load Gemini API key")
	}
	vertexToken := lambdaboot.LoadVertexToken(ctx, clients.SSM)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get API key")
	}
	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	kv := lambdaboot.InitStore(cfg.Storage, clients.Config)
	a := app.NewWithStore(ctx, cfg, app.NewProvider(cfg, client.Models), kv)
	sessions = a.NewRegistry()

	originSecret := os.Getenv("ORIGIN_VERIFY_SECRET")
	if originSecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set, origin verification disabled")
	}
	handler = api.WithOriginVerify(originSecret,
		api.WithMetrics(withLazySweep(api.NewServer(sessions, a.History).Handler())))

	startup := lambdaboot.StartupLog("noksha-lambda", initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Storage("history", cfg.Storage.Type).
		Model("image", cfg.Provider.ImageModel).
		Model("text", cfg.Provider.TextModel).
		SSMParam("apiKey", lambdaboot.APIKeyParam()).
		Feature("originVerify", originSecret != "").
		Feature("imagen", vertexToken != "" && cfg.Provider.RecolorBackend == config.RecolorImagen)
	for k, v := range cfg.Summary() {
		startup.Config(k, v)
	}
	startup.Log()
}

var (
	sweepMu   sync.Mutex
	lastSweep time.Time
)

// withLazySweep expires idle sessions on incoming requests, at most once
// per app.SweepInterval. A ticker goroutine would not run while the
// execution environment is frozen.
func withLazySweep(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		sweepMu.Lock()
		due := now.Sub(lastSweep) >= app.SweepInterval
		if due {
			lastSweep = now
		}
		sweepMu.Unlock()
		if due {
			sessions.Sweep(now)
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
