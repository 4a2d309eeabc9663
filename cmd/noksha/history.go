package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fpang/noksha/internal/cli"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/imageutil"
)

var (
	exportOutFlag   string
	exportThumbFlag bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved designs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved designs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, closeFn := loadHistory(cmd)
		defer closeFn()

		entries := h.Recent()
		if len(entries) == 0 {
			fmt.Println("No saved designs yet.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSAVED\tSTYLE\tGENDER")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, cli.FormatTimestamp(e.CreatedAt), e.StyleName, e.Gender)
		}
		return tw.Flush()
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Write a saved design image to disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, closeFn := loadHistory(cmd)
		defer closeFn()

		saved, ok := h.Get(args[0])
		if !ok {
			return fmt.Errorf("no saved design %q", args[0])
		}
		outDir := cli.ResolveOutputDir(exportOutFlag)

		img := saved.Image
		name := history.DownloadName(saved)
		if exportThumbFlag {
			thumb, err := imageutil.Thumbnail(img, imageutil.DefaultThumbnailMaxDimension)
			if err != nil {
				return err
			}
			img = thumb
			name = "thumb-" + saved.ID + ".jpg"
		}
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write design: %w", err)
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	historyExportCmd.Flags().StringVarP(&exportOutFlag, "out", "o", ".", "Output directory")
	historyExportCmd.Flags().BoolVar(&exportThumbFlag, "thumbnail", false, "Export a small JPEG thumbnail instead")
	historyCmd.AddCommand(historyListCmd, historyExportCmd)
}

func loadHistory(cmd *cobra.Command) (*history.History, func()) {
	cfg := loadConfig()
	kv := openStore(cmd.Context(), cfg)
	h := history.New(kv, history.WithKey(cfg.History.Key))
	h.Load(cmd.Context())
	return h, func() { kv.Close() }
}
