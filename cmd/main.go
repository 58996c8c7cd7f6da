package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/broadphase/featureflag"
	bphttp "github.com/aukilabs/broadphase/http"
	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/modules"
	"github.com/aukilabs/broadphase/modules/contact"
	"github.com/aukilabs/broadphase/modules/inspect"
	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/broadphase/scenario"
	"github.com/aukilabs/broadphase/smoketest"
	bpwebsocket "github.com/aukilabs/broadphase/websocket"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The server version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "broadphase_info",
		Help:        "Broadphase server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"BROADPHASE_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"BROADPHASE_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"BROADPHASE_PUBLIC_ENDPOINT"      help:"The public endpoint where this server is reachable."`
	LogLevel           string        `cli:""        env:"BROADPHASE_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"BROADPHASE_LOG_INDENT"           help:"Indent logs."`
	Scenario           string        `cli:""        env:"BROADPHASE_SCENARIO"             help:"YAML file describing the bodies of the default world."`
	SyncClockInterval  time.Duration `cli:",hidden" env:"BROADPHASE_SYNC_CLOCK_INTERVAL"  help:"Client sync clock (heartbeat) message interval."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"BROADPHASE_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	FrameDuration      time.Duration `cli:",hidden" env:"BROADPHASE_FRAME_DURATION"       help:"The duration of a world frame."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"BROADPHASE_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	Tree               treeConfig    `cli:",hidden" env:"-"                               help:"Quadtree configuration."`
	World              worldConfig   `cli:",hidden" env:"-"                               help:"Default world configuration."`
	Events             eventsConfig  `cli:",hidden" env:"-"                               help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"BROADPHASE_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                               help:"Show version."`
	Help               bool          `cli:""        env:"-"                               help:"Show help."`
}

type treeConfig struct {
	SplitThreshold int     `cli:",hidden" env:"BROADPHASE_TREE_SPLIT_THRESHOLD"  help:"The number of entries above which a leaf splits."`
	MergeThreshold int     `cli:",hidden" env:"BROADPHASE_TREE_MERGE_THRESHOLD"  help:"The number of entries below which a branch merges."`
	MinSideLength  float64 `cli:",hidden" env:"BROADPHASE_TREE_MIN_SIDE_LENGTH"  help:"The side length under which a node never splits."`
	MaxGrowth      int     `cli:",hidden" env:"BROADPHASE_TREE_MAX_GROWTH"       help:"The number of times the root may double in a single insert."`
}

type worldConfig struct {
	X      float64 `cli:",hidden" env:"BROADPHASE_WORLD_X"      help:"The left edge of the default world."`
	Y      float64 `cli:",hidden" env:"BROADPHASE_WORLD_Y"      help:"The bottom edge of the default world."`
	Width  float64 `cli:",hidden" env:"BROADPHASE_WORLD_WIDTH"  help:"The initial width of the default world."`
	Height float64 `cli:",hidden" env:"BROADPHASE_WORLD_HEIGHT" help:"The initial height of the default world."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"BROADPHASE_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"BROADPHASE_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"BROADPHASE_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"BROADPHASE_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		SyncClockInterval:  time.Second * 5,
		ClientIdleTimeout:  time.Minute * 5,
		FrameDuration:      time.Millisecond * 15,
		LogSummaryInterval: time.Minute,
		Tree: treeConfig{
			SplitThreshold: quadtree.DefaultSplitThreshold,
			MinSideLength:  quadtree.DefaultMinSideLength,
			MaxGrowth:      quadtree.DefaultMaxGrowth,
		},
		World: worldConfig{
			Width:  1024,
			Height: 1024,
		},
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts a broadphase server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "broadphase",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	flags := featureflag.New(conf.FeatureFlags)
	worlds := &models.WorldStore{}

	world, err := newDefaultWorld(ctx, conf, worlds)
	if err != nil {
		logs.Fatal(err)
	}
	defer worlds.Remove(context.Background(), world)

	var worldModules []modules.Module
	flags.IfNotSet(featureflag.FlagDisableContactEvents, func() {
		worldModules = append(worldModules, &contact.Module{})
	})
	flags.IfNotSet(featureflag.FlagDisableInspectSnapshot, func() {
		worldModules = append(worldModules, &inspect.Module{})
	})
	detach := modules.Attach(world, worldModules...)
	defer detach()

	go world.StartDispatchFrames()

	var service http.ServeMux
	service.HandleFunc("/health", bphttp.HandleHealthCheck)
	service.Handle("/ready", bphttp.HandleWithCORS(bphttp.HandleReadyCheck(worlds)))
	service.Handle("/version", bphttp.HandleWithCORS(bphttp.HandleVersion(version)))
	service.HandleFunc("/smoke-test", smoketest.HandleSmokeTest)

	flags.IfNotSet(featureflag.FlagDisableDebugAPI, func() {
		debug := bphttp.HandleWithCORS(bphttp.NewDebugRouter(worlds))
		service.Handle("/worlds", debug)
		service.Handle("/worlds/", debug)
	})

	contacts := websocket.Server{
		Handshake: bphttp.VerifyClientID(bpwebsocket.HeaderClientID),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h bpwebsocket.Handler = &bpwebsocket.ContactHandler{
				ClientSyncClockInterval: conf.SyncClockInterval,
				ClientIdleTimeout:       conf.ClientIdleTimeout,
				Worlds:                  worlds,
				FeatureFlags:            flags,
			}
			h = bpwebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = bpwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			bpwebsocket.Handle(ctx, conn, h)
		},
	}
	service.Handle("/", contacts)
	service.Handle("/contacts", contacts)

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", bphttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", bphttp.HandleReadyCheck(worlds))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("world_id", worlds.GlobalWorldID(world.ID)).
		WithTag("feature_flags", flags.List()).
		Info("starting broadphase server")

	bphttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			bphttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

// newDefaultWorld creates the world served from startup and fills it with the
// configured scenario.
func newDefaultWorld(ctx context.Context, conf config, worlds *models.WorldStore) (*models.World, error) {
	bounds := quadtree.NewRegion(
		float32(conf.World.X),
		float32(conf.World.Y),
		float32(conf.World.Width),
		float32(conf.World.Height),
	)
	opts := quadtree.Options{
		SplitThreshold: conf.Tree.SplitThreshold,
		MergeThreshold: conf.Tree.MergeThreshold,
		MinSideLength:  float32(conf.Tree.MinSideLength),
		MaxGrowth:      conf.Tree.MaxGrowth,
	}

	var sc scenario.Scenario
	if conf.Scenario != "" {
		var err error
		if sc, err = scenario.Load(conf.Scenario); err != nil {
			return nil, errors.New("loading scenario failed").Wrap(err)
		}

		if sc.HasBounds() {
			bounds = sc.Region()
		}
		opts = sc.Options(opts)
	}

	world := models.NewWorld(worlds.NewID(), conf.FrameDuration, bounds, opts)
	if err := worlds.Add(ctx, world); err != nil {
		return nil, errors.New("adding default world failed").Wrap(err)
	}

	if _, err := sc.Apply(world); err != nil {
		worlds.Remove(ctx, world)
		return nil, errors.New("applying scenario failed").
			WithTag("scenario", conf.Scenario).
			Wrap(err)
	}
	return world, nil
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if conf.FrameDuration <= 0 {
		return errors.New("frame duration must be positive").
			WithTag("frame_duration", conf.FrameDuration)
	}

	if conf.Scenario == "" && (conf.World.Width <= 0 || conf.World.Height <= 0) {
		return errors.New("world size must be positive").
			WithTag("width", conf.World.Width).
			WithTag("height", conf.World.Height)
	}

	if conf.Tree.SplitThreshold <= 0 {
		return errors.New("split threshold must be positive").
			WithTag("split_threshold", conf.Tree.SplitThreshold)
	}

	if conf.Tree.MinSideLength < 0 || conf.Tree.MaxGrowth < 0 {
		return errors.New("tree options must not be negative").
			WithTag("min_side_length", conf.Tree.MinSideLength).
			WithTag("max_growth", conf.Tree.MaxGrowth)
	}
	return nil
}
