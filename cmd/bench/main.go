package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/cubefs/cubefs/blobstore/util/log"
	"github.com/cubefs/zlog/client"
	"github.com/cubefs/zlog/layout"
	"github.com/cubefs/zlog/phydesign"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const (
	workloadAppend           = "append"
	workloadAppendCheckEpoch = "append_check_epoch"
	workloadWrite            = "write"
	workloadPhyDesign        = "phydesign"

	// append_check_epoch objects start at epoch 10
	benchEpoch = 11
)

type benchConfig struct {
	Addresses        []string
	Workload         string
	Objects          int
	EntrySize        int
	StripeWidth      int
	EntriesPerObject int
	Striped          bool
	Concurrency      int
	Count            int
	Probes           []uint32
}

func init() {
	pflag.String("config", "", "optional config file, flags override it")
	pflag.String("addr", "127.0.0.1:9601", "zlogd grpc addresses, comma separated")
	pflag.String("workload", workloadAppend, "append, append_check_epoch, write or phydesign")
	pflag.Int("objects", 16, "objects used by the append and phydesign workloads")
	pflag.Int("entry-size", 1024, "payload size in bytes")
	pflag.Int("stripe-width", 8, "objects per stripe of the write workload")
	pflag.Int("entries-per-object", 1024, "slots per object of the write workload")
	pflag.Bool("striped", false, "the servers run the striped strategy")
	pflag.Int("concurrency", 8, "concurrent workers")
	pflag.Int("count", 10000, "total operations")
	pflag.String("probes", "read_epoch_omap,write_omap_index_entry,append_data", "phydesign probes, comma separated")
	pflag.String("log-level", "info", "debug, info, warn or error")
}

func loadConfig() (*benchConfig, error) {
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}
	viper.SetEnvPrefix("zlog_bench")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Info(err, "read config", path)
		}
	}

	cfg := &benchConfig{
		Addresses:        strings.Split(viper.GetString("addr"), ","),
		Workload:         viper.GetString("workload"),
		Objects:          viper.GetInt("objects"),
		EntrySize:        viper.GetInt("entry-size"),
		StripeWidth:      viper.GetInt("stripe-width"),
		EntriesPerObject: viper.GetInt("entries-per-object"),
		Striped:          viper.GetBool("striped"),
		Concurrency:      viper.GetInt("concurrency"),
		Count:            viper.GetInt("count"),
	}
	if cfg.Objects <= 0 || cfg.Concurrency <= 0 || cfg.Count <= 0 || cfg.EntrySize < 0 {
		return nil, fmt.Errorf("objects, concurrency and count must be positive")
	}
	for _, name := range strings.Split(viper.GetString("probes"), ",") {
		p, err := phydesign.ParseProbe(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		cfg.Probes = append(cfg.Probes, uint32(p))
	}

	var level log.Level
	switch viper.GetString("log-level") {
	case "debug":
		level = log.Ldebug
	case "warn":
		level = log.Lwarn
	case "error":
		level = log.Lerror
	default:
		level = log.Linfo
	}
	log.SetOutputLevel(level)
	return cfg, nil
}

type bench struct {
	cfg     *benchConfig
	pool    *client.Pool
	prefix  string
	payload []byte

	next  int64
	bytes int64
}

// op runs the seq-th operation of a workload.
type op func(ctx context.Context, seq int) error

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(errors.Detail(err))
	}
	pool, err := client.NewPool(&client.Config{Addresses: cfg.Addresses})
	if err != nil {
		log.Fatalf("connect to %v failed: %s", cfg.Addresses, err)
	}
	defer pool.Close()

	b := &bench{
		cfg:     cfg,
		pool:    pool,
		prefix:  "bench." + uuid.NewString(),
		payload: make([]byte, cfg.EntrySize),
	}
	for i := range b.payload {
		b.payload[i] = byte(i)
	}

	span, ctx := trace.StartSpanFromContext(context.Background(), "zlog-bench")
	fn, err := b.prepare(ctx)
	if err != nil {
		log.Fatalf("prepare %s workload failed: %s", cfg.Workload, errors.Detail(err))
	}

	start := time.Now()
	if err = b.run(ctx, fn); err != nil {
		log.Fatalf("%s workload failed: %s", cfg.Workload, errors.Detail(err))
	}
	elapsed := time.Since(start)

	ops := float64(cfg.Count) / elapsed.Seconds()
	mbps := float64(atomic.LoadInt64(&b.bytes)) / elapsed.Seconds() / (1 << 20)
	span.Infof("workload: %s, ops: %d, concurrency: %d, elapsed: %s, ops/s: %.1f, MB/s: %.2f",
		cfg.Workload, cfg.Count, cfg.Concurrency, elapsed, ops, mbps)
}

func (b *bench) objectName(no int) string {
	return fmt.Sprintf("%s.%d", b.prefix, no%b.cfg.Objects)
}

func (b *bench) prepare(ctx context.Context) (op, error) {
	switch b.cfg.Workload {
	case workloadAppend:
		return func(ctx context.Context, seq int) error {
			oid := b.objectName(seq)
			return b.pool.Get(oid).Append(ctx, oid, b.payload)
		}, nil

	case workloadAppendCheckEpoch:
		err := b.forEachObject(ctx, func(ctx context.Context, oid string) error {
			return b.pool.Get(oid).AppendInit(ctx, oid)
		})
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, seq int) error {
			oid := b.objectName(seq)
			return b.pool.Get(oid).AppendCheckEpoch(ctx, oid, benchEpoch, b.payload)
		}, nil

	case workloadWrite:
		l, err := client.OpenLog(b.pool, client.LogConfig{
			Name: b.prefix,
			Params: layout.Params{
				EntrySize:        uint32(b.cfg.EntrySize),
				StripeWidth:      uint32(b.cfg.StripeWidth),
				EntriesPerObject: uint32(b.cfg.EntriesPerObject),
			},
			Striped: b.cfg.Striped,
			Fanout:  b.cfg.Concurrency,
		})
		if err != nil {
			return nil, err
		}
		if err = l.Seal(ctx, benchEpoch-1, 1); err != nil {
			return nil, err
		}
		return func(ctx context.Context, seq int) error {
			return l.Write(ctx, benchEpoch, uint64(seq), b.payload)
		}, nil

	case workloadPhyDesign:
		initOps := []uint32{uint32(phydesign.InitState)}
		err := b.forEachObject(ctx, func(ctx context.Context, oid string) error {
			return b.pool.Get(oid).Probe(ctx, oid, initOps, 0, nil)
		})
		if err != nil {
			return nil, err
		}
		log.Infof("phydesign probes: %s", phydesign.ProbesString(b.cfg.Probes))
		return func(ctx context.Context, seq int) error {
			oid := b.objectName(seq)
			return b.pool.Get(oid).Probe(ctx, oid, b.cfg.Probes, uint64(seq), b.payload)
		}, nil
	}
	return nil, fmt.Errorf("unknown workload %q", b.cfg.Workload)
}

func (b *bench) forEachObject(ctx context.Context, fn func(ctx context.Context, oid string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for i := 0; i < b.cfg.Objects; i++ {
		oid := b.objectName(i)
		g.Go(func() error {
			return fn(ctx, oid)
		})
	}
	return g.Wait()
}

func (b *bench) run(ctx context.Context, fn op) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < b.cfg.Concurrency; i++ {
		g.Go(func() error {
			for {
				seq := int(atomic.AddInt64(&b.next, 1) - 1)
				if seq >= b.cfg.Count {
					return nil
				}
				if err := fn(ctx, seq); err != nil {
					return errors.Info(err, "operation", seq)
				}
				atomic.AddInt64(&b.bytes, int64(len(b.payload)))
			}
		})
	}
	return g.Wait()
}
