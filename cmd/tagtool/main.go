// Package main provides a command-line tool for inspecting and re-targeting
// serialized tag blobs.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/config"
	"github.com/EchoTools/tagcache/pkg/definitions"
	"github.com/EchoTools/tagcache/pkg/metrics"
	"github.com/EchoTools/tagcache/pkg/resource"
	"github.com/EchoTools/tagcache/pkg/serializer"
	"github.com/EchoTools/tagcache/pkg/tag"
)

var version = "dev"

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "tagtool",
		Usage:   "Inspect and re-target serialized tag blobs",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a TOML config file", EnvVars: []string{"TAGTOOL_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Usage: "Set log level (panic, fatal, error, warn, info, debug, trace)", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "metrics-file", Usage: "Write metrics in text format to this file on exit", EnvVars: []string{"METRICS_FILE"}},
		},
		Before: setup,
		After:  flushMetrics,
		Commands: []*cli.Command{
			inspectCommand(),
			portCommand(),
			identCommand(),
			locationCommand(),
			indexCommand(),
			pagesCommand(),
		},
	}
}

// setup loads the config into the app metadata and configures logging.
func setup(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if file := c.String("metrics-file"); file != "" {
		cfg.Metrics.File = file
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parse log level")
	}
	logrus.SetLevel(level)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata["config"] = cfg
	return nil
}

func getConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata["config"].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func flushMetrics(c *cli.Context) error {
	cfg := getConfig(c)
	if cfg.Metrics.File == "" {
		return nil
	}
	return errors.Wrap(metrics.WriteFile(cfg.Metrics.File), "write metrics")
}

// getTarget reads --version/--platform, falling back to the configured
// default target for the missing half.
func getTarget(c *cli.Context, versionFlag, platformFlag string) (cache.Target, error) {
	cfg := getConfig(c)
	v, p := cfg.Target.Version, cfg.Target.Platform
	if s := c.String(versionFlag); s != "" {
		v = s
	}
	if s := c.String(platformFlag); s != "" {
		p = s
	}
	return cache.ParseTarget(v, p)
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the header and contents of blob files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "Only print the blob header"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("at least one file is required")
			}
			s := serializer.New(definitions.NewRegistry())
			for _, path := range c.Args().Slice() {
				if err := inspect(c, s, path); err != nil {
					return errors.Wrap(err, path)
				}
			}
			return nil
		},
	}
}

func inspect(c *cli.Context, s *serializer.Serializer, path string) error {
	b, target, err := cache.ReadFile(path)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  group:        %s\n", b.Group)
	fmt.Fprintf(w, "  target:       %s\n", target)
	fmt.Fprintf(w, "  size:         %s\n", humanize.Bytes(uint64(len(b.Data))))
	fmt.Fprintf(w, "  fixups:       %d\n", len(b.PointerFixups))
	fmt.Fprintf(w, "  resources:    %d\n", len(b.ResourcePointerOffsets))
	fmt.Fprintf(w, "  dependencies: %v\n", b.SortedDependencies())
	if c.Bool("raw") {
		return nil
	}

	obj, err := s.Deserialize(b, target)
	if errors.Is(err, serializer.ErrUnknownGroup) {
		logrus.WithField("group", b.Group).Debug("no definition for group")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s\n", obj)
	return nil
}

func identCommand() *cli.Command {
	return &cli.Command{
		Name:      "ident",
		Usage:     "Show the packed value and registered type of tag groups",
		ArgsUsage: "GROUP...",
		Action: func(c *cli.Context) error {
			r := definitions.NewRegistry()
			for _, arg := range c.Args().Slice() {
				group, err := parseGroup(arg)
				if err != nil {
					return err
				}
				typ, ok := r.TypeForGroup(group)
				if !ok {
					typ = "-"
				}
				fmt.Fprintf(c.App.Writer, "%-6q 0x%08x %s\n", group.String(), group.Value(), typ)
			}
			return nil
		},
	}
}

// parseGroup accepts a group name or a packed hex value.
func parseGroup(s string) (tag.Tag, error) {
	if strings.HasPrefix(s, "0x") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return tag.Null, errors.Wrapf(tag.ErrInvalidTag, "%q", s)
		}
		return tag.FromInt(uint32(v)), nil
	}
	return tag.Parse(s)
}

func locationCommand() *cli.Command {
	return &cli.Command{
		Name:  "location",
		Usage: "Decode or encode resource page location flags",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "legacy", Value: "0", Usage: "Legacy flag byte"},
			&cli.StringFlag{Name: "current", Value: "0", Usage: "Current flag byte"},
			&cli.StringFlag{Name: "set", Usage: "Encode this location into the flags"},
		},
		Action: func(c *cli.Context) error {
			legacy, err := parseFlagByte(c.String("legacy"))
			if err != nil {
				return errors.Wrap(err, "--legacy")
			}
			current, err := parseFlagByte(c.String("current"))
			if err != nil {
				return errors.Wrap(err, "--current")
			}
			l, cur := resource.LegacyFlags(legacy), resource.CurrentFlags(current)

			if name := c.String("set"); name != "" {
				loc, err := resource.ParseLocation(name)
				if err != nil {
					return err
				}
				if l, cur, err = resource.Encode(loc, l, cur); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "legacy=0x%02x current=0x%02x\n", uint8(l), uint8(cur))
				return nil
			}

			loc, err := resource.Decode(l, cur)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s (%s) checksum=%t\n", loc, loc.FileName(), resource.ChecksumEnabled(l, cur))
			return nil
		},
	}
}

func parseFlagByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// outputPath names the ported copy of path inside dir.
func outputPath(dir, path string) string {
	return filepath.Join(dir, filepath.Base(path))
}
