// Package lambdaboot holds the cold-start wiring of the Lambda binary: AWS
// config, secrets from SSM Parameter Store, the history backend and the
// startup log.
package lambdaboot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/logging"
	"github.com/fpang/noksha/internal/store"
)

// Default SSM parameter names.
const (
	DefaultAPIKeyParam      = "/noksha/prod/gemini-api-key"
	DefaultVertexTokenParam = "/noksha/prod/vertex-access-token"
)

// ParamGetter is the part of the SSM client used here.
type ParamGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSClients holds the AWS config and the SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config. Fatals on error.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitStore opens the history backend. Fatals on error.
func InitStore(cfg store.Config, awsCfg aws.Config) store.KV {
	kv, err := store.Open(context.Background(), cfg, &awsCfg)
	if err != nil {
		log.Fatal().Err(err).Str("storageType", cfg.Type).Msg("Failed to open history store")
	}
	return kv
}

// GetParameter reads one SSM parameter value.
func GetParameter(ctx context.Context, client ParamGetter, name string, decrypt bool) (string, error) {
	start := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: aws.Bool(decrypt),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read SSM parameter %s: %w", name, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("SSM parameter %s is empty", name)
	}
	log.Debug().Str("param", name).Dur("elapsed", time.Since(start)).Msg("SSM parameter loaded")
	return *result.Parameter.Value, nil
}

// APIKeyParam returns the SSM parameter holding the Gemini API key.
func APIKeyParam() string {
	return logging.EnvOrDefault("SSM_API_KEY_PARAM", DefaultAPIKeyParam)
}

// LoadGeminiKey fills GEMINI_API_KEY from SSM Parameter Store unless it is
// already set.
func LoadGeminiKey(ctx context.Context, client ParamGetter) error {
	if os.Getenv("GEMINI_API_KEY") != "" {
		return nil
	}
	key, err := GetParameter(ctx, client, APIKeyParam(), true)
	if err != nil {
		return err
	}
	return os.Setenv("GEMINI_API_KEY", key)
}

// LoadVertexToken fills VERTEX_ACCESS_TOKEN from SSM when it is unset. A
// missing parameter only disables the Imagen recolor backend, so the
// failure is logged and the empty token returned.
func LoadVertexToken(ctx context.Context, client ParamGetter) string {
	if tok := os.Getenv("VERTEX_ACCESS_TOKEN"); tok != "" {
		return tok
	}
	param := logging.EnvOrDefault("SSM_VERTEX_TOKEN_PARAM", DefaultVertexTokenParam)
	tok, err := GetParameter(ctx, client, param, true)
	if err != nil {
		log.Warn().Err(err).Str("param", param).Msg("Vertex access token not found in SSM, Imagen recolor disabled")
		return ""
	}
	os.Setenv("VERTEX_ACCESS_TOKEN", tok)
	return tok
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
