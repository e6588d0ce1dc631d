package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/vcore/pkg/liveview"
	"github.com/vango-dev/vcore/pkg/vdom"
)

func benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the diff engine and the session transport",
	}
	cmd.AddCommand(benchDiffCmd(), benchLoadCmd())
	return cmd
}

// latencies collects samples and reports percentiles.
type latencies struct {
	mu      sync.Mutex
	samples []time.Duration
}

func (l *latencies) add(d time.Duration) {
	l.mu.Lock()
	l.samples = append(l.samples, d)
	l.mu.Unlock()
}

func (l *latencies) percentile(p float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.samples) == 0 {
		return 0
	}
	slices.Sort(l.samples)
	i := int(p * float64(len(l.samples)-1))
	return l.samples[i]
}

var (
	benchListTemplate = vdom.NewTemplate("bench:list", vdom.El("ul", vdom.Dyn(0)))
	benchItemTemplate = vdom.NewTemplate("bench:item",
		vdom.El("li", vdom.DynAttr(0), vdom.DynText(0)))
)

func benchList(keys []int) *vdom.VNode {
	items := vdom.Range(keys, func(k int, _ int) *vdom.VNode {
		s := strconv.Itoa(k)
		return vdom.NewVNode(s, benchItemTemplate,
			[]vdom.DynamicNode{vdom.Text(s)},
			[][]vdom.Attribute{{vdom.Data("key", s)}})
	})
	return vdom.NewVNode("", benchListTemplate, []vdom.DynamicNode{items}, nil)
}

// mutate applies one random list operation: shuffle, swap, insert,
// remove or reverse.
func mutate(r *rand.Rand, keys []int, next *int) []int {
	out := slices.Clone(keys)
	switch r.IntN(5) {
	case 0:
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	case 1:
		if len(out) > 1 {
			i, j := r.IntN(len(out)), r.IntN(len(out))
			out[i], out[j] = out[j], out[i]
		}
	case 2:
		*next++
		out = slices.Insert(out, r.IntN(len(out)+1), *next)
	case 3:
		if len(out) > 0 {
			out = slices.Delete(out, r.IntN(len(out)), 1)
		}
	case 4:
		slices.Reverse(out)
	}
	return out
}

func benchDiffCmd() *cobra.Command {
	var (
		size   int
		rounds int
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Reconcile random keyed list updates in process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchDiff(size, rounds, seed)
		},
	}

	cmd.Flags().IntVarP(&size, "size", "n", 1000, "Initial list size")
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 500, "Number of updates")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed")

	return cmd
}

func runBenchDiff(size, rounds int, seed uint64) error {
	r := rand.New(rand.NewPCG(seed, seed))
	initial := make([]int, size)
	for i := range initial {
		initial[i] = i
	}
	next := size

	var keys *vdom.State[[]int]
	dom := vdom.New(func(s *vdom.Scope) (*vdom.VNode, error) {
		keys = vdom.UseState(s, func() []int { return initial })
		return benchList(keys.Get()), nil
	}, nil)
	defer dom.Close()

	m := &vdom.Mutations{}
	start := time.Now()
	if err := dom.Rebuild(m); err != nil {
		return err
	}
	build := time.Since(start)
	created := len(m.Take())

	var (
		lat      latencies
		edits    int
		moves    int
		maxEdits int
	)
	total := time.Now()
	for range rounds {
		keys.Set(mutate(r, keys.Peek(), &next))
		t := time.Now()
		dom.RenderImmediate(m)
		lat.add(time.Since(t))
		moves += m.Moves()
		n := m.Len()
		edits += n
		maxEdits = max(maxEdits, n)
		m.Take()
	}
	elapsed := time.Since(total)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "list size\t%d → %d\n", size, len(keys.Peek()))
	fmt.Fprintf(w, "initial build\t%v (%d edits)\n", build, created)
	fmt.Fprintf(w, "updates\t%d in %v\n", rounds, elapsed)
	fmt.Fprintf(w, "update p50 / p99\t%v / %v\n", lat.percentile(0.5), lat.percentile(0.99))
	fmt.Fprintf(w, "edits total / max\t%d / %d\n", edits, maxEdits)
	fmt.Fprintf(w, "moves\t%d\n", moves)
	fmt.Fprintf(w, "elements\t%d\n", dom.ElementCount())
	return w.Flush()
}

func benchLoadCmd() *cobra.Command {
	var (
		url      string
		clients  int
		duration time.Duration
		rps      float64
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive concurrent sessions of the counter app",
		Long: `Drive concurrent sessions of the counter app. Each client clicks
"+" at the given rate and waits for the resulting edit batch.

Without --url an in-process server is started on a random port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if url == "" {
				addr, stop, err := startBenchServer()
				if err != nil {
					return err
				}
				defer stop()
				url = "ws://" + addr + liveview.DefaultConfig().SocketPath
			}
			return runBenchLoad(ctx, url, clients, duration, rps)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "WebSocket URL of a running counter app")
	cmd.Flags().IntVarP(&clients, "clients", "n", 50, "Concurrent sessions")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 10*time.Second, "Test duration")
	cmd.Flags().Float64Var(&rps, "rps", 5, "Clicks per second per client")

	return cmd
}

func startBenchServer() (string, func(), error) {
	cfg := liveview.DefaultConfig()
	cfg.ResumeWindow = 0
	srv := liveview.New(counterApp, cfg)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	hs := &http.Server{Handler: srv.Handler()}
	go hs.Serve(ln)
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(ctx)
		srv.Shutdown(ctx)
	}
	return ln.Addr().String(), stop, nil
}

func runBenchLoad(ctx context.Context, url string, clients int, duration time.Duration, rps float64) error {
	if rps <= 0 {
		return errors.New("--rps must be positive")
	}
	var (
		lat        latencies
		clicks     atomic.Uint64
		handshakes atomic.Uint64
		failures   atomic.Uint64
	)

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	for range clients {
		g.Go(func() error {
			c, err := liveview.Dial(gCtx, url, nil)
			if err != nil {
				failures.Add(1)
				return nil
			}
			defer c.Close()
			handshakes.Add(1)
			if err := c.Sync(gCtx); err != nil {
				failures.Add(1)
				return nil
			}
			buttons := c.FindAll("button")
			if len(buttons) == 0 {
				failures.Add(1)
				return nil
			}
			plus := buttons[len(buttons)-1].ID

			tick := time.NewTicker(time.Duration(float64(time.Second) / rps))
			defer tick.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-tick.C:
				}
				start := time.Now()
				if err := c.Send("click", plus, nil); err != nil {
					failures.Add(1)
					return nil
				}
				if err := c.Sync(gCtx); err != nil {
					if gCtx.Err() == nil {
						failures.Add(1)
					}
					return nil
				}
				lat.add(time.Since(start))
				clicks.Add(1)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "sessions\t%d / %d\n", handshakes.Load(), clients)
	fmt.Fprintf(w, "round trips\t%d (%.1f/s)\n", clicks.Load(), float64(clicks.Load())/duration.Seconds())
	fmt.Fprintf(w, "latency p50 / p99\t%v / %v\n", lat.percentile(0.5), lat.percentile(0.99))
	fmt.Fprintf(w, "failures\t%d\n", failures.Load())
	return w.Flush()
}
