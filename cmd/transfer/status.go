package main

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/urfave/cli/v2"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show how many bytes of an artifact the server stores",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("status needs exactly one artifact name", 2)
			}
			client, err := newClient(c, "")
			if err != nil {
				return err
			}

			name := c.Args().First()
			size := client.StoredSize(c.Context, name)
			fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\n", name, size, units.BytesSize(float64(size)))
			return nil
		},
	}
}
