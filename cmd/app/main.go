package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/reftree/internal"
	pkgconfig "github.com/starford/reftree/pkg/config"
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "content",
			Usage:   "Content tree root (overrides content.root)",
			Sources: cli.EnvVars("APP_CONTENT_ROOT"),
		},
	}
}

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("content"); root != "" {
		cfg.Content.Root = root
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	res, err := internal.Build(ctx, opts...)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	fmt.Fprintln(cmd.Root().Writer, res.OutputPath)
	return nil
}

func check(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Check(ctx, opts...); err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "reftree",
		Usage:  "Resolve, index, serve and compile a tree of JSON documents linked by $ref pointers",
		Action: serve,
		Flags:  configFlags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Index the content tree, watch it and serve the HTTP API",
				Flags:  configFlags(),
				Action: serve,
			},
			{
				Name:   "build",
				Usage:  "Compile the content tree into the build directory",
				Flags:  configFlags(),
				Action: build,
			},
			{
				Name:   "check",
				Usage:  "Load and validate every root document without writing anything",
				Flags:  configFlags(),
				Action: check,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Flags:  configFlags(),
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
