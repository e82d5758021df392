package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sir_venger/resumable_lite/pkg/transferclient"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download an artifact, whole or a byte range",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Destination file (default: artifact name)"},
			&cli.StringFlag{Name: "range", Aliases: []string{"r"}, Usage: "Byte range: a-b, a- or -n"},
			&cli.IntFlag{Name: "connections", Aliases: []string{"c"}, Usage: "Parallel connections for a whole download", Value: 4},
		},
		Action: downloadAction,
	}
}

func downloadAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("download needs exactly one artifact name", 2)
	}
	name := c.Args().First()
	out := c.String("out")
	if out == "" {
		out = filepath.Base(name)
	}

	client, err := newClient(c, "")
	if err != nil {
		return err
	}

	if c.String("range") == "" {
		if err = client.Download(c.Context, name, out, c.Int("connections")); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s -> %s\n", name, out)
		return nil
	}

	spec, err := parseRangeFlag(c.String("range"))
	if err != nil {
		return err
	}
	body, cr, err := client.ReadRange(c.Context, name, spec)
	if err != nil {
		return err
	}

	bar := transferclient.NewProgressBar(c.App.Writer, fmt.Sprintf("download %s %s", name, cr), cr.Size())
	rc := transferclient.NewProgressReadCloser(body, bar)
	defer rc.Close()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, rc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// parseRangeFlag принимает как `bytes=a-b`, так и короткое `a-b`.
func parseRangeFlag(v string) (transferproto.RangeSpec, error) {
	if !strings.HasPrefix(v, transferproto.RangeUnitBytes+"=") {
		v = transferproto.RangeUnitBytes + "=" + v
	}
	return transferproto.ParseRange(v)
}
