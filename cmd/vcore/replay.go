package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vcore/internal/config"
	"github.com/vango-dev/vcore/pkg/protocol"
	"github.com/vango-dev/vcore/pkg/recorder"
	"github.com/vango-dev/vcore/pkg/render"
)

// storeTimeout bounds one request to the recording store.
const storeTimeout = 30 * time.Second

func replayCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		list   bool
		frames bool
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "replay [key]",
		Short: "Replay a recorded session",
		Long: `Replay a recorded session from the configured recording store
and print the final HTML the browser would have shown.

Examples:
  vcore replay --list
  vcore replay 3f9a...-1767323045.vrec
  vcore replay --frames 3f9a...-1767323045.vrec`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := newStore(cfg.Recorder)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()

			if list || len(args) == 0 {
				keys, err := store.List(ctx)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Println(k)
				}
				return nil
			}
			return runReplay(ctx, store, args[0], frames, pretty)
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List recordings")
	cmd.Flags().BoolVarP(&frames, "frames", "f", false, "Print every recorded frame")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "Indent the HTML output")

	return cmd
}

func runReplay(ctx context.Context, store recorder.Store, key string, frames, pretty bool) error {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	defer rc.Close()

	entries, err := recorder.Read(rc)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	if frames {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ELAPSED\tDIR\tTYPE\tBYTES\tFLAGS")
		for _, e := range entries {
			fmt.Fprintf(w, "%v\t%s\t%s\t%d\t%s\n",
				e.Elapsed, e.Direction, e.Frame.Type, len(e.Frame.Payload), flagNames(e.Frame.Flags))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println()
	}

	doc := render.NewDocument()
	batches, err := recorder.Replay(entries, doc)
	if err != nil {
		return err
	}
	html, err := render.NewRenderer(render.RendererConfig{Pretty: pretty, Indent: "  "}).RenderToString(doc)
	if err != nil {
		return err
	}
	fmt.Println(html)
	success("replayed %d frames, %d edit batches", len(entries), batches)
	return nil
}

func flagNames(f protocol.FrameFlags) string {
	switch {
	case f.Has(protocol.FlagInitial) && f.Has(protocol.FlagFinal):
		return "initial,final"
	case f.Has(protocol.FlagInitial):
		return "initial"
	case f.Has(protocol.FlagFinal):
		return "final"
	}
	return "-"
}
