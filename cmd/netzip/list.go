package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/rodaine/table"

	"github.com/nguyengg/netzip"
	_ "github.com/nguyengg/netzip/httpsource"
	_ "github.com/nguyengg/netzip/s3source"
)

// ListCommand implements the "list" (alias "l") subcommand.
type ListCommand struct {
	Args struct {
		URL string `positional-arg-name:"url" description:"URL of the remote zip archive"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ListCommand) Execute([]string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	z, err := netzip.Open(ctx, c.Args.URL, func(o *netzip.Options) {
		o.Concurrency = opts.Concurrency
	})
	if err != nil {
		return fmt.Errorf("open archive error: %w", err)
	}
	defer z.Close()

	z.SortRecordsByName()

	tbl := table.New("Path", "Compressed Size", "Uncompressed Size")
	for _, r := range z.Records() {
		tbl.AddRow(r.FileName, humanize.IBytes(uint64(r.CompressedSize)), humanize.IBytes(uint64(r.UncompressedSize)))
	}
	tbl.Print()

	return nil
}
