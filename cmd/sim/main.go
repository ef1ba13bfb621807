package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/logsink"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/sim"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to run file (JSON or YAML)")
	logDir := flag.String("log-dir", "", "CSV output directory (overrides run file)")
	deadline := flag.Duration("deadline", 0, "Wall-clock budget for the whole batch (overrides run file)")
	pgDSN := flag.String("pg-dsn", "", "PostgreSQL DSN for durable log storage")
	profileAddr := flag.String("profile-addr", "", "Pyroscope server address (empty disables profiling)")
	flag.Parse()

	if *configPath == "" {
		logs.Errorf("missing -config")
		os.Exit(1)
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		logs.Errorf("load run file: %+v", err)
		os.Exit(1)
	}
	if *logDir != "" {
		loaded.LogDir = *logDir
	}
	if *deadline > 0 {
		loaded.Deadline = *deadline
	}

	if *profileAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "market-sim",
			ServerAddress:   *profileAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("pyroscope start: %v", err)
			os.Exit(1)
		}
		defer profiler.Stop()
	}

	var pg *conn.Client
	if *pgDSN != "" {
		pg, err = conn.New(conn.Option{ConnString: *pgDSN})
		if err != nil {
			logs.Errorf("postgres connect: %+v", err)
			os.Exit(1)
		}
		defer pg.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		logs.Info("shutdown requested, stopping after current period")
		cancel()
	}()

	if err := runBatch(ctx, loaded, pg); err != nil {
		logs.Errorf("run batch: %+v", err)
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, loaded ops.Loaded, pg *conn.Client) error {
	metrics := obs.NewMetrics()

	var deadline time.Time
	if loaded.Deadline > 0 {
		deadline = time.Now().Add(loaded.Deadline)
	}

	started := time.Now()
	for i, cfg := range loaded.Simulations {
		dir := simDir(loaded.LogDir, i)
		factory, err := sinkFactory(dir, pg)
		if err != nil {
			return err
		}
		opt := sim.RunOptions{
			Deadline: deadline,
			Update: func(s *sim.Simulation) {
				logs.Infof("simulation %s: %d/%d periods complete",
					s.ID, s.CompletedPeriods(), s.TargetPeriods())
				writeProgress(dir, s.CompletedPeriods())
			},
		}
		s, err := sim.New(cfg, factory, sim.WithMetrics(metrics))
		if err != nil {
			return err
		}
		if err := s.Run(ctx, opt); err != nil {
			return err
		}
		if s.Truncated() {
			logs.Infof("simulation %s truncated: %d of %d periods",
				s.ID, s.CompletedPeriods(), s.RequestedPeriods())
		}
	}

	snap := metrics.Snapshot()
	logs.Infof("batch done in %v: %d periods, %d orders (%d rejected), %d trades",
		time.Since(started).Round(time.Millisecond),
		snap.Periods, snap.OrdersAccepted, snap.OrdersRejected, snap.Trades)
	return nil
}

func sinkFactory(dir string, pg *conn.Client) (logsink.Factory, error) {
	if pg != nil {
		return logsink.PostgresFactory(pg.DB(), uuid.NewString())
	}
	return logsink.CSVFactory(dir), nil
}

func simDir(base string, index int) string {
	if base == "" {
		base = "."
	}
	return filepath.Join(base, fmt.Sprintf("sim-%d", index))
}

// writeProgress mirrors the completed period count to a small file next
// to the logs so long batches can be watched from outside.
func writeProgress(dir string, period int) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	path := filepath.Join(dir, "period")
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", period)), 0o644); err != nil {
		logs.Errorf("write progress file %s: %v", path, err)
	}
}
