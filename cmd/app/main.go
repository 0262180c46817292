package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/scriptor/internal"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/parser"
	pkgconfig "github.com/starford/scriptor/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries the protocol.
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}

	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}

	return nil
}

func importNote(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := cmd.Args().First()
	format := cmd.String("format")

	var data []byte
	switch {
	case cmd.Bool("clipboard"):
		text, err := clipboard.ReadAll()
		if err != nil {
			return fmt.Errorf("read clipboard: %w", err)
		}
		data = []byte(text)
	case path == "" || path == "-":
		if data, err = io.ReadAll(os.Stdin); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	default:
		if data, err = os.ReadFile(path); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if format == "" {
			format = formatFromExt(path)
		}
	}

	note, err := internal.Import(ctx, format, cmd.String("title"), data,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, note.ID)
	return err
}

func showNote(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("note id is required")
	}

	doc, err := internal.Show(ctx, id,
		internal.WithConfig(cfg),
		internal.WithLogOutput(io.Discard),
	)
	if err != nil {
		return err
	}

	md := "# " + doc.Title + "\n\n" + document.RenderMarkdown(doc.Content)
	out := os.Stdout

	if cmd.Bool("raw") {
		_, err = io.WriteString(out, md)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(int(cmd.Int("width"))),
	)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render note: %w", err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return parser.FormatHTML
	case ".txt":
		return parser.FormatText
	default:
		return parser.FormatMarkdown
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "scriptor",
		Usage:  "Rich-text note editor service with autosave, HTTP API and MCP tools",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "import",
				Usage:     "Create a note from a file, stdin or the clipboard",
				ArgsUsage: "[FILE]",
				Action:    importNote,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Input format: " + strings.Join(parser.Formats, ", "),
					},
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Note title (overrides the parsed one)",
					},
					&cli.BoolFlag{
						Name:  "clipboard",
						Usage: "Read the note from the system clipboard",
					},
				},
			},
			{
				Name:      "show",
				Usage:     "Render a note in the terminal",
				ArgsUsage: "ID",
				Action:    showNote,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Print Markdown without terminal styling",
					},
					&cli.IntFlag{
						Name:  "width",
						Usage: "Word wrap width",
						Value: 80,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
