package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type envSection struct {
	title string
	flags []string
}

var envSections = []envSection{
	{"Spotify Catalog (optional, Spotify inputs fail without it)", []string{"spotify-client-id", "spotify-client-secret"}},
	{"Cache", []string{"cache-dir", "cache-ttl", "cache-max-entries", "cache-bloom-capacity", "cache-bloom-fp-rate"}},
	{"Rendering", []string{"render-temp-dir", "render-ffmpeg-path", "render-timeout"}},
	{"YouTube Resolution", []string{
		"youtube-ytdlp-path", "youtube-info-timeout", "youtube-fallback-timeout",
		"youtube-candidate-timeout", "youtube-search-timeout", "youtube-max-candidates",
	}},
	{"HTTP Server", []string{"server-host", "server-port", "server-read-timeout", "server-write-timeout"}},
	{"Flood Prevention", []string{"flood-limit-per-minute"}},
	{"Logging", []string{"log-level", "log-format"}},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# trackclip Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# Format: " + envPrefix + "_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		content.WriteString("# -----------------------------------------------------------------------------\n")
		fmt.Fprintf(&content, "# %s\n", section.title)
		content.WriteString("# -----------------------------------------------------------------------------\n")

		for _, name := range section.flags {
			f := cmd.Root().PersistentFlags().Lookup(name)
			if f == nil {
				continue
			}
			fmt.Fprintf(&content, "# %s (CLI: --%s)\n", f.Usage, name)
			fmt.Fprintf(&content, "%s=%s\n", flagToEnvVar(name), f.DefValue)
		}
		content.WriteString("\n")
	}

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
