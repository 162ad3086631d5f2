package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/EchoTools/tagcache/pkg/archive"
	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/resource"
	"github.com/EchoTools/tagcache/pkg/store"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Manage the tag index",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "Index file, defaults to the configured path"},
		},
		Subcommands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Lay out blob files in a cache store and index them in order",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "base", Value: 0x10000, Usage: "Address of the first blob"},
				},
				Action: func(c *cli.Context) error {
					idx, err := openIndex(c)
					if err != nil {
						return err
					}
					defer idx.Close()
					return buildIndex(c, idx, c.Args().Slice())
				},
			},
			{
				Name:  "list",
				Usage: "List indexed tags",
				Action: func(c *cli.Context) error {
					idx, err := openIndex(c)
					if err != nil {
						return err
					}
					defer idx.Close()

					w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "INDEX\tGROUP\tADDRESS\tSIZE\tNAME")
					err = idx.Walk(c.Context, func(e store.Entry) error {
						_, err := fmt.Fprintf(w, "0x%04x\t%s\t0x%08x\t%s\t%s\n", e.Index, e.Group, e.Address, humanize.IBytes(uint64(e.Size)), e.Name)
						return err
					})
					if err != nil {
						return err
					}
					return w.Flush()
				},
			},
			{
				Name:      "get",
				Usage:     "Show one indexed tag by index or name",
				ArgsUsage: "INDEX|NAME",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("exactly one index or name is required")
					}
					idx, err := openIndex(c)
					if err != nil {
						return err
					}
					defer idx.Close()

					var e store.Entry
					if n, perr := strconv.ParseInt(c.Args().First(), 0, 32); perr == nil {
						e, err = idx.Get(int32(n))
					} else {
						e, err = idx.Lookup(c.Args().First())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s [%s] index 0x%04x at 0x%08x, %s\n", e.Name, e.Group, e.Index, e.Address, humanize.IBytes(uint64(e.Size)))
					return nil
				},
			},
		},
	}
}

func openIndex(c *cli.Context) (*store.Index, error) {
	path := c.String("db")
	if path == "" {
		path = getConfig(c).Index.Path
	}
	return store.OpenIndex(path)
}

// buildIndex places every file in one memory store for the default target
// and records where each landed. Indices follow argument order.
func buildIndex(c *cli.Context, idx *store.Index, paths []string) error {
	t, err := getTarget(c, "", "")
	if err != nil {
		return err
	}
	mem := store.NewMemory(c.Uint64("base"), t)

	for i, path := range paths {
		b, from, err := cache.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, path)
		}
		if from != t {
			return errors.Errorf("%s: blob is for %s, store is for %s", path, from, t)
		}
		addr, err := mem.Place(b)
		if err != nil {
			return errors.Wrap(err, path)
		}
		e := store.Entry{
			Index:   int32(i),
			Group:   b.Group,
			Name:    tagName(path),
			Address: addr,
			Size:    uint32(len(b.Data)),
		}
		if err := idx.Add(c.Context, e); err != nil {
			return errors.Wrap(err, path)
		}
		logrus.WithFields(logrus.Fields{"name": e.Name, "address": fmt.Sprintf("0x%x", addr)}).Debug("indexed")
	}
	logrus.Infof("indexed %d tags, %s", len(paths), humanize.IBytes(uint64(mem.Size())))
	return nil
}

// tagName strips the directory and extension of a blob file.
func tagName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func pagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "pages",
		Usage: "Store and read externally paged resources",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Page store directory, defaults to the configured path"},
		},
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add files as pages of one location",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "location", Value: resource.LocationResources.String(), Usage: "Location the pages are stored in"},
					&cli.BoolFlag{Name: "no-checksum", Usage: "Do not checksum the pages"},
				},
				Action: func(c *cli.Context) error {
					loc, err := resource.ParseLocation(c.String("location"))
					if err != nil {
						return err
					}
					ps, err := openPageStore(c)
					if err != nil {
						return err
					}
					defer ps.Close()

					for _, path := range c.Args().Slice() {
						data, err := os.ReadFile(path)
						if err != nil {
							return err
						}
						h, err := ps.Add(loc, data, !c.Bool("no-checksum"))
						if err != nil {
							return errors.Wrap(err, path)
						}
						fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\n", h, loc, path)
					}
					level := getConfig(c).Archive.CompressionLevel
					return ps.Flush(archive.WithCompressionLevel(level))
				},
			},
			{
				Name:      "read",
				Usage:     "Write the contents of a page",
				ArgsUsage: "HANDLE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Output file"},
				},
				Action: func(c *cli.Context) error {
					h, err := strconv.ParseUint(c.Args().First(), 0, 32)
					if err != nil {
						return errors.Wrap(err, "parse handle")
					}
					ps, err := openPageStore(c)
					if err != nil {
						return err
					}
					defer ps.Close()

					data, err := ps.ReadPage(resource.Handle(h))
					if err != nil {
						return err
					}
					return os.WriteFile(c.String("output"), data, 0644)
				},
			},
		},
	}
}

func openPageStore(c *cli.Context) (*resource.PageStore, error) {
	cfg := getConfig(c)
	dir := c.String("dir")
	if dir == "" {
		dir = cfg.Resource.Dir
	}
	return resource.OpenPageStore(dir, resource.WithCompressionLevel(cfg.Resource.CompressionLevel))
}
