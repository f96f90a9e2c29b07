package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dudk/bounce/effect"
	"github.com/dudk/bounce/vst2"
)

// list prints native stages and vst2 plugins found in scan paths.
func list(ctx context.Context, w io.Writer, scan []string) error {
	cache, err := vst2.NewCache(ctx, append(vst2.DefaultScanPaths(), scan...)...)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Native stages:")
	for _, id := range effect.IDs() {
		fmt.Fprintf(w, "\t%v\n", id)
	}
	fmt.Fprint(w, cache)
	return nil
}
