package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"clipship/internal/app"
	"clipship/pkg/config"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	pushCRF        int
	pushYes        bool
	pushSkipUpload bool
	pushOutputDir  string
)

var pushCmd = &cobra.Command{
	Use:   "push <video>",
	Short: "Compress a video and upload it to Webflow",
	Long: `Compress a video to VP9/Opus WebM and upload it to the site's
"Video Uploads" asset folder, printing the hosted CDN URL.

The --crf flag controls the size/quality tradeoff: LOWER values mean HIGHER
quality and a LARGER file (libvpx-vp9 accepts 0-63). An existing file at the
output path is overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().IntVarP(&pushCRF, "crf", "c", 0, "Quality level, 0-63 (lower = higher quality, larger file)")
	pushCmd.Flags().BoolVarP(&pushYes, "yes", "y", false, "Upload without asking for confirmation")
	pushCmd.Flags().BoolVar(&pushSkipUpload, "skip-upload", false, "Compress only, leave the artifact on disk")
	pushCmd.Flags().StringVarP(&pushOutputDir, "output-dir", "o", "", "Directory for the compressed artifact")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var cfg *config.Config
	if pushSkipUpload {
		cfg = config.LoadLocal()
	} else {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
	}

	if pushOutputDir != "" {
		cfg.Encoder.OutputDir = pushOutputDir
	}
	if !cmd.Flags().Changed("crf") {
		pushCRF = cfg.Encoder.CRF
	}

	service := app.BuildService(cfg)
	pipeline := app.NewPipeline(service)

	compressed, err := pipeline.Compress(ctx, app.Request{
		SourcePath: args[0],
		CRF:        pushCRF,
	})
	if err != nil {
		return err
	}

	printCompressSummary(compressed)

	if pushSkipUpload {
		fmt.Println(infoStyle.Render("Artifact left at: " + compressed.Artifact.Path))
		return nil
	}

	if !pushYes {
		var upload bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Upload %q to Webflow?", filepath.Base(compressed.Artifact.Path))).
			Affirmative("Yes").
			Negative("No").
			Value(&upload).
			Run()
		if err != nil {
			return err
		}
		if !upload {
			slog.Info("Upload cancelled", "artifact", compressed.Artifact.Path)
			return nil
		}
	}

	published, err := pipeline.Publish(ctx, compressed.Artifact.Path)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Upload complete"))
	fmt.Println(titleStyle.Render(published.Asset.URL()))
	return nil
}

func printCompressSummary(result *app.CompressResult) {
	fmt.Println(successStyle.Render("✓ Compression finished"))
	fmt.Printf("  Original:   %s\n", humanize.Bytes(uint64(result.OriginalSize)))
	fmt.Printf("  Compressed: %s\n", humanize.Bytes(uint64(result.Artifact.Size)))
	if result.OriginalSize > 0 {
		saved := float64(result.OriginalSize-result.Artifact.Size) / float64(result.OriginalSize) * 100
		fmt.Printf("  Reduction:  %.1f%%\n", saved)
	}
	if result.Duration > 0 {
		fmt.Printf("  Duration:   %.1fs\n", result.Duration)
	}
}
