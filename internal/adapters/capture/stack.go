package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
	"github.com/jarvis-lab/netguard/internal/geo"
)

// StackConfig carries the capture-stack slice of the daemon
// configuration as plain values.
type StackConfig struct {
	Interface     string
	LogDir        string
	SuricataEve   string
	Tools         []string
	IftopInterval time.Duration
}

// Stack owns the supervised capture processes and their collectors.
// Runners keep the long-lived tools alive; collectors turn their
// output into run tables.
type Stack struct {
	Board *StatusBoard

	cfg        StackConfig
	runners    []*Runner
	collectors []ports.Collector
	reapNames  []string
}

// NewStack builds runners and collectors for every enabled tool.
// Directory layout under LogDir: captures/<tool>/ for pcap output,
// positions/ for collector offsets, <tool>.log for line output.
func NewStack(cfg StackConfig, store ports.CaptureStore, resolver geo.Resolver) (*Stack, error) {
	s := &Stack{Board: NewStatusBoard(), cfg: cfg}

	positionsDir := filepath.Join(cfg.LogDir, "positions")
	if err := os.MkdirAll(positionsDir, 0755); err != nil {
		return nil, fmt.Errorf("create positions dir: %w", err)
	}
	captureDir := func(tool string) (string, error) {
		dir := filepath.Join(cfg.LogDir, "captures", tool)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create capture dir for %s: %w", tool, err)
		}
		return dir, nil
	}
	posFile := func(name string) string {
		return filepath.Join(positionsDir, name)
	}
	logFile := func(tool string) string {
		return filepath.Join(cfg.LogDir, tool+".log")
	}

	enabled := make(map[string]bool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		enabled[t] = true
	}

	for _, tool := range domain.AllTools {
		if !enabled[tool] {
			continue
		}
		switch tool {
		case domain.ToolTcpdump:
			dir, err := captureDir(tool)
			if err != nil {
				return nil, err
			}
			s.supervise(tool, TcpdumpCommand(cfg.Interface, dir), "")
			s.reapNames = append(s.reapNames, "tcpdump")
			s.collectors = append(s.collectors,
				NewTcpdumpCollector(store, NewProcessedListStore(posFile("tcpdump.json")), dir))

		case domain.ToolTshark:
			dir, err := captureDir(tool)
			if err != nil {
				return nil, err
			}
			// Capture windows run per cycle, no resident process.
			s.collectors = append(s.collectors,
				NewTsharkCollector(store, resolver, cfg.Interface, dir))

		case domain.ToolP0f:
			s.supervise(tool, P0fCommand(cfg.Interface, logFile(tool)), "")
			s.reapNames = append(s.reapNames, "p0f")
			s.collectors = append(s.collectors,
				NewP0fCollector(store, NewOffsetStore(posFile("p0f.pos")), logFile(tool)))

		case domain.ToolNgrep:
			// ngrep writes to stdout; the runner redirects it.
			s.supervise(tool, NgrepCommand(cfg.Interface), logFile(tool))
			s.reapNames = append(s.reapNames, "ngrep")
			s.collectors = append(s.collectors,
				NewNgrepCollector(store, NewOffsetStore(posFile("ngrep.pos")), logFile(tool), cfg.Interface))

		case domain.ToolHttpry:
			// httpry detaches itself; the collector restarts it when the
			// log disappears.
			s.reapNames = append(s.reapNames, "httpry")
			s.collectors = append(s.collectors,
				NewHttpryCollector(store, NewOffsetStore(posFile("httpry.pos")), logFile(tool), cfg.Interface, s.Board))

		case domain.ToolArgus:
			dir, err := captureDir(tool)
			if err != nil {
				return nil, err
			}
			s.collectors = append(s.collectors,
				NewArgusCollector(store, cfg.Interface, dir))

		case domain.ToolNetsniff:
			dir, err := captureDir(tool)
			if err != nil {
				return nil, err
			}
			runner := s.supervise(tool, NetsniffCommand(cfg.Interface, dir), "")
			s.reapNames = append(s.reapNames, "netsniff-ng")
			s.collectors = append(s.collectors,
				NewNetsniffCollector(store, NewProcessedListStore(posFile("netsniff.json")), dir, runner))

		case domain.ToolIftop:
			s.collectors = append(s.collectors,
				NewIftopCollector(store, cfg.Interface, cfg.IftopInterval))

		case domain.ToolNethogs:
			s.collectors = append(s.collectors,
				NewNethogsCollector(store, cfg.Interface))

		case domain.ToolSuricata:
			// Suricata runs as its own daemon; only its eve log is tailed.
			s.collectors = append(s.collectors,
				NewSuricataCollector(store, NewOffsetMapStore(posFile("suricata.json")), cfg.SuricataEve))
		}
	}

	return s, nil
}

func (s *Stack) supervise(tool string, build CommandFunc, stdoutFile string) *Runner {
	r := NewRunner(RunnerConfig{
		Tool:       tool,
		Build:      build,
		StdoutFile: stdoutFile,
		Board:      s.Board,
	})
	s.runners = append(s.runners, r)
	return r
}

// Collectors exposes the collector set, used by stats endpoints to
// report configured intervals.
func (s *Stack) Collectors() []ports.Collector { return s.collectors }

// Run reaps orphans from a previous daemon run, then drives every
// runner and collector loop until ctx ends.
func (s *Stack) Run(ctx context.Context) error {
	// Our spawned commands all reference the interface on their
	// command line, which keeps the reap away from unrelated
	// instances.
	ReapOrphans(s.reapNames, s.cfg.Interface)
	// httpry is supervised by log existence, so a reaped daemon must
	// not leave its old log behind.
	os.Remove(filepath.Join(s.cfg.LogDir, domain.ToolHttpry+".log"))

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range s.runners {
		g.Go(func() error {
			r.Run(ctx)
			return nil
		})
	}
	for _, c := range s.collectors {
		g.Go(func() error {
			RunLoop(ctx, c, s.Board)
			return nil
		})
	}
	return g.Wait()
}
