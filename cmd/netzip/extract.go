package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/nguyengg/go-aws-commons/tspb"

	"github.com/nguyengg/netzip"
	_ "github.com/nguyengg/netzip/httpsource"
	_ "github.com/nguyengg/netzip/s3source"
)

// ExtractCommand implements the "extract" (alias "x") subcommand.
type ExtractCommand struct {
	Args struct {
		URL   string   `positional-arg-name:"url" description:"URL of the remote zip archive"`
		Files []string `positional-arg-name:"file" description:"member file names to extract"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ExtractCommand) Execute([]string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	z, err := netzip.Open(ctx, c.Args.URL, func(o *netzip.Options) {
		o.Concurrency = opts.Concurrency
	})
	if err != nil {
		return fmt.Errorf("open archive error: %w", err)
	}
	defer z.Close()

	bar := tspb.DefaultBytes(-1, fmt.Sprintf("extracting %d files", len(c.Args.Files)))

	extracted, err := z.DownloadFiles(ctx, c.Args.Files)
	_ = bar.Close()
	if err != nil {
		return fmt.Errorf("extract files error: %w", err)
	}

	success := 0
	n := len(extracted)
	for i, e := range extracted {
		name := filepath.Base(e.LFH.FileName)

		if err = os.WriteFile(name, e.Bytes, 0o644); err != nil {
			log.Printf("%d/%d: write %q error: %v", i+1, n, name, err)
			continue
		}

		success++
	}

	log.Printf("successfully extracted %d/%d files", success, n)
	return nil
}
