package cmd

import (
	"fmt"

	"clipship/internal/app"
	"clipship/pkg/config"

	"github.com/spf13/cobra"
)

var (
	compressCRF       int
	compressOutputDir string
)

var compressCmd = &cobra.Command{
	Use:   "compress <video>",
	Short: "Compress a video without uploading",
	Long: `Compress a video to VP9/Opus WebM and leave the artifact on disk.
Lower --crf means higher quality and a larger file.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompress,
}

func init() {
	compressCmd.Flags().IntVarP(&compressCRF, "crf", "c", 0, "Quality level, 0-63 (lower = higher quality, larger file)")
	compressCmd.Flags().StringVarP(&compressOutputDir, "output-dir", "o", "", "Directory for the compressed artifact")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	cfg := config.LoadLocal()

	if compressOutputDir != "" {
		cfg.Encoder.OutputDir = compressOutputDir
	}
	if !cmd.Flags().Changed("crf") {
		compressCRF = cfg.Encoder.CRF
	}

	service := app.BuildService(cfg)
	pipeline := app.NewPipeline(service)

	compressed, err := pipeline.Compress(cmd.Context(), app.Request{
		SourcePath: args[0],
		CRF:        compressCRF,
	})
	if err != nil {
		return err
	}

	printCompressSummary(compressed)
	fmt.Println(infoStyle.Render("Artifact left at: " + compressed.Artifact.Path))
	return nil
}
