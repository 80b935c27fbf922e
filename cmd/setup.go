package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"clipship/pkg/config"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Clipship",
	Long:  `Check for FFmpeg, create the output directory, and store the Webflow credentials.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("📼 Clipship Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Checking tools", checkTools},
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func checkTools() error {
	return runWithSpinner("Checking for FFmpeg", func() error {
		if !commandExists("ffmpeg") {
			return fmt.Errorf("ffmpeg not found - install from https://ffmpeg.org/download.html")
		}
		if !commandExists("ffprobe") {
			fmt.Println(warnStyle.Render("ffprobe not found - duration reporting will be skipped"))
		}
		return nil
	})
}

func createDirectories() error {
	if err := os.MkdirAll("compressed", 0755); err != nil {
		return fmt.Errorf("create compressed: %w", err)
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	var token, siteID string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Webflow API Token").
				Description("Site settings → Apps & integrations → API access").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(required("Webflow API Token")),
			huh.NewInput().
				Title("Site ID").
				Description("Site settings → General → Site ID").
				Value(&siteID).
				Validate(required("Site ID")),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env := map[string]string{
		config.EnvAPIToken: strings.TrimSpace(token),
		config.EnvSiteID:   strings.TrimSpace(siteID),
	}

	return writeEnvFile(env)
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		config.EnvAPIToken,
		config.EnvSiteID,
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Run: clipship push your-video.mp4")
	fmt.Println("  2. Tune quality with --crf (lower = higher quality, larger file)")
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	return err
}
