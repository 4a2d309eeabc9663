// Command noksha runs the design wizard from a terminal: generate a design
// from a style and quiz answers, recolor regions of it, and browse saved
// designs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/noksha/internal/config"
	"github.com/fpang/noksha/internal/logging"
	"github.com/fpang/noksha/internal/store"
)

// Global flags
var (
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "noksha",
	Short: "AI garment designer for Bangladeshi fashion",
	Long: `Noksha generates Bangladeshi garment designs from a base style and a short
personality quiz, then lets you recolor hand-drawn regions of the result.

Examples:
  noksha styles --gender female
  noksha generate --gender female --style jamdani-fusion --out ./designs
  noksha generate -g male -s classic-panjabi --answers 1,2,3 --save
  noksha recolor --image design.png --strokes strokes.json --color Emerald
  noksha history list`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to YAML config (default $"+config.PathEnv+")")
	rootCmd.AddCommand(stylesCmd, generateCmd, recolorCmd, maskCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	return cfg
}

func openStore(ctx context.Context, cfg *config.Config) store.KV {
	kv, err := store.Open(ctx, cfg.Storage, nil)
	if err != nil {
		log.Fatal().Err(err).Str("storageType", cfg.Storage.Type).Msg("Failed to open history store")
	}
	return kv
}
