package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/intersect-sdl/sdl-doc-gen/internal"
	"github.com/intersect-sdl/sdl-doc-gen/internal/linkgraph"
	pkgconfig "github.com/intersect-sdl/sdl-doc-gen/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), "", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if bp := cmd.String("base-path"); bp != "" {
		cfg.Content.BasePath = bp
	}
	return cfg, nil
}

// oneShot loads the config and installs a stderr logger.
func oneShot(cmd *cli.Command) (*internal.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLogger(cfg.App.LogLevel, false)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func indexCmd(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := oneShot(cmd)
	if err != nil {
		return err
	}
	if dir := cmd.Args().First(); dir != "" {
		idx, err := internal.NewBuilder(cfg, logger).BuildUUIDIndex(ctx, dir, cmd.String("output"))
		if err != nil {
			return err
		}
		if cmd.String("output") == "" {
			return printJSON(idx)
		}
		return nil
	}

	svc, closeDB, err := internal.NewService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()
	res, err := svc.Reindex(ctx)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func resolveCmd(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := oneShot(cmd)
	if err != nil {
		return err
	}
	if dir := cmd.Args().First(); dir != "" {
		rep, err := internal.NewBuilder(cfg, logger).ResolveUUIDLinks(ctx, dir, cmd.String("cache"))
		if err != nil {
			return err
		}
		return printJSON(rep)
	}

	svc, closeDB, err := internal.NewService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()
	res, err := svc.Resolve(ctx)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func backlinksCmd(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := oneShot(cmd)
	if err != nil {
		return err
	}
	dir := cmd.Args().First()
	if dir == "" {
		pc, err := cfg.Content.Paths()
		if err != nil {
			return err
		}
		dir = pc.BasePath
	}
	bl, err := internal.NewBuilder(cfg, logger).BuildBacklinkIndex(ctx, dir)
	if err != nil {
		return err
	}
	if out := cmd.String("output"); out != "" {
		if err := linkgraph.WriteBacklinkIndex(bl, out); err != nil {
			return err
		}
		logger.Info("backlink index written", slog.String("path", out), slog.Int("uuids", len(bl)))
		return nil
	}
	return printJSON(bl)
}

func compileCmd(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := oneShot(cmd)
	if err != nil {
		return err
	}
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("compile: file argument is required")
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	abs, _ := filepath.Abs(file)
	compiler := internal.NewCompiler(cfg, logger)
	var res any
	var code string
	if cmd.Bool("lenient") {
		pre := compiler.Preprocess(ctx, src, abs)
		if pre == nil {
			return fmt.Errorf("compile: %s is not a markdown file", file)
		}
		res, code = pre, pre.Code
	} else {
		out, err := compiler.Compile(ctx, src, abs)
		if err != nil {
			return err
		}
		res, code = out, out.Code
	}
	if cmd.Bool("html") {
		_, err := fmt.Fprintln(os.Stdout, code)
		return err
	}
	return printJSON(res)
}

func uuidCmd(_ context.Context, cmd *cli.Command) error {
	n := int(cmd.Int("count"))
	if n < 1 {
		n = 1
	}
	for range n {
		fmt.Fprintln(os.Stdout, uuid.NewString())
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "docgen",
		Usage:   "Compile directive-extended markdown and maintain the UUID link graph of a documentation tree",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("DOCGEN_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "base-path",
				Usage: "Content base directory, or the name of an environment variable holding it",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: mcp,
			},
			{
				Name:      "index",
				Usage:     "Rebuild the link graph, or print the UUID index of DIR",
				ArgsUsage: "[DIR]",
				Action:    indexCmd,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the UUID index of DIR to this file"},
				},
			},
			{
				Name:      "resolve",
				Usage:     "Rewrite [[uuid:...]] tokens into relative links",
				ArgsUsage: "[DIR]",
				Action:    resolveCmd,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cache", Usage: "Write the UUID index of DIR to this file"},
				},
			},
			{
				Name:      "backlinks",
				Usage:     "Count [[uuid:...]] references under DIR",
				ArgsUsage: "[DIR]",
				Action:    backlinksCmd,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the backlink index to this file"},
				},
			},
			{
				Name:      "compile",
				Usage:     "Compile one markdown file",
				ArgsUsage: "FILE",
				Action:    compileCmd,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "html", Usage: "Print only the HTML"},
					&cli.BoolFlag{Name: "lenient", Usage: "Print the source unchanged when it fails to compile"},
				},
			},
			{
				Name:   "uuid",
				Usage:  "Print new UUIDs",
				Action: uuidCmd,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "How many to print"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
