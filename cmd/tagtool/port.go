package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/EchoTools/tagcache/pkg/archive"
	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/definitions"
	"github.com/EchoTools/tagcache/pkg/serializer"
	"github.com/EchoTools/tagcache/pkg/store"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

func portCommand() *cli.Command {
	return &cli.Command{
		Name:      "port",
		Usage:     "Re-target blob files to another version or platform",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to-version", Usage: "Destination version, defaults to the configured target"},
			&cli.StringFlag{Name: "to-platform", Usage: "Destination platform, defaults to the configured target"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Output directory"},
			&cli.IntFlag{Name: "workers", Usage: "Parallel serializations, defaults to the configured count"},
			&cli.BoolFlag{Name: "check-deps", Usage: "Reject blobs referencing tags missing from the index"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("at least one file is required")
			}
			to, err := getTarget(c, "to-version", "to-platform")
			if err != nil {
				return err
			}
			cfg := getConfig(c)

			opts := []serializer.Option{serializer.WithLogger(logrus.WithField("command", "port"))}
			if c.Bool("check-deps") {
				idx, err := store.OpenIndex(cfg.Index.Path)
				if err != nil {
					return err
				}
				defer idx.Close()
				opts = append(opts, serializer.WithTagIndex(idx))
			}
			s := serializer.New(definitions.NewRegistry(), opts...)

			workers := c.Int("workers")
			if workers == 0 {
				workers = cfg.Workers()
			}
			failed, err := port(c, s, c.Args().Slice(), to, workers)
			if err != nil {
				return err
			}
			if failed > 0 {
				return errors.Errorf("%d of %d files failed", failed, c.NArg())
			}
			return nil
		},
	}
}

// port reads every file, re-serializes the readable ones for the target and
// writes them to the output directory. Failures are logged and counted; the
// remaining files are still ported.
func port(c *cli.Context, s *serializer.Serializer, paths []string, to cache.Target, workers int) (int, error) {
	outDir := c.String("output")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, errors.Wrap(err, "create output directory")
	}
	level := getConfig(c).Archive.CompressionLevel

	failed := 0
	var jobs []serializer.Job
	claimed := make(map[string]string)
	for _, path := range paths {
		out := outputPath(outDir, path)
		if first, ok := claimed[out]; ok {
			logrus.WithFields(logrus.Fields{"file": path, "output": out, "claimed_by": first}).Error("output name already used")
			failed++
			continue
		}
		claimed[out] = path

		obj, err := readObject(s, path)
		if err != nil {
			logrus.WithError(err).WithField("file", path).Error("read failed")
			failed++
			continue
		}
		jobs = append(jobs, serializer.Job{Name: path, Object: obj})
	}

	results, err := s.SerializeAll(c.Context, jobs, to, workers)
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		out := outputPath(outDir, r.Name)
		if werr := cache.WriteFile(out, r.Blob, to, archive.WithCompressionLevel(level)); werr != nil {
			logrus.WithError(werr).WithField("file", out).Error("write failed")
			failed++
			continue
		}
		logrus.WithFields(logrus.Fields{"file": out, "target": to}).Info("ported")
	}
	return failed, err
}

func readObject(s *serializer.Serializer, path string) (*tagdata.Struct, error) {
	b, from, err := cache.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.Deserialize(b, from)
}
