package cli

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/config"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/file"
	"quizroom-service/internal/infra/memory"
	pgloader "quizroom-service/internal/infra/postgres"
	redisstore "quizroom-service/internal/infra/redis"
	"quizroom-service/internal/metrics"
	transport "quizroom-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type startOptions struct {
	bind         string
	port         int
	prefix       string
	redisAddr    string
	postgresURL  string
	quizID       string
	quizDir      string
	defaultName  string
	roomTimeout  string
	resetAnswers bool
	verbose      bool
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(v *viper.Viper, configPath *string) *cobra.Command {
	cmd, _ := newStartCmd(v, configPath)
	return cmd
}

func newStartCmd(v *viper.Viper, configPath *string) (*cobra.Command, *startOptions) {
	opts := &startOptions{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			opts.apply(cmd.Flags(), &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUIZROOM_BIND)")
	fs.IntVarP(&opts.port, "port", "p", 8888, "port to listen on (env: QUIZROOM_PORT)")
	fs.StringVar(&opts.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: QUIZROOM_PREFIX)")
	fs.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for room markers and quiz cache (env: QUIZROOM_REDIS_ADDR)")
	fs.StringVar(&opts.postgresURL, "postgres-url", "", "postgres URL holding question sets (env: QUIZROOM_POSTGRES_URL)")
	fs.StringVar(&opts.quizID, "quiz", "default", "question set played by new rooms (env: QUIZROOM_QUIZ)")
	fs.StringVar(&opts.quizDir, "quiz-dir", "", "directory of <quiz>.yaml question sets (env: QUIZROOM_QUIZ_DIR)")
	fs.StringVar(&opts.defaultName, "default-name", "Jim", "display name for players who do not pick one (env: QUIZROOM_DEFAULT_NAME)")
	fs.StringVar(&opts.roomTimeout, "room-timeout", "", "remove empty rooms idle for this long, e.g. 1h; empty keeps rooms forever (env: QUIZROOM_ROOM_TIMEOUT)")
	fs.BoolVar(&opts.resetAnswers, "reset-answers", false, "require fresh answers after each question (env: QUIZROOM_RESET_ANSWERS)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log room events and dropped requests (env: QUIZROOM_VERBOSE)")
	bindEnv(v, fs)

	return cmd, opts
}

// apply copies explicitly set flags (or their env vars) over the file config.
func (o *startOptions) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("bind") {
		cfg.Server.Bind = o.bind
	}
	if fs.Changed("port") {
		cfg.Server.Port = o.port
	}
	if fs.Changed("prefix") {
		cfg.Server.Prefix = o.prefix
	}
	if fs.Changed("verbose") {
		cfg.Server.Verbose = o.verbose
	}
	if fs.Changed("redis-addr") {
		cfg.Redis.Addr = o.redisAddr
	}
	if fs.Changed("postgres-url") {
		cfg.Postgres.URL = o.postgresURL
	}
	if fs.Changed("quiz") {
		cfg.Quiz.ID = o.quizID
	}
	if fs.Changed("quiz-dir") {
		cfg.Quiz.Dir = o.quizDir
	}
	if fs.Changed("default-name") {
		cfg.Quiz.DefaultName = o.defaultName
	}
	if fs.Changed("reset-answers") {
		cfg.Quiz.ResetAnswers = o.resetAnswers
	}
	if fs.Changed("room-timeout") {
		cfg.Rooms.IdleTimeout = o.roomTimeout
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           transport.NewRouter(deps.service, transport.RouterOptions{Prefix: cfg.Server.Prefix, DefaultQuiz: cfg.Quiz.ID, Metrics: deps.metrics}),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz service on %s%s/", cfg.Addr(), cfg.Server.Prefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reapRooms(gctx, deps.registry)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// reapRooms periodically drops idle empty rooms until ctx is done.
func reapRooms(ctx context.Context, registry *app.Registry) {
	timeout := registry.IdleTimeout()
	if timeout <= 0 {
		return
	}
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := registry.Reap(ctx, now); n > 0 {
				log.Printf("reaped %d idle rooms", n)
			}
		}
	}
}

type dependencies struct {
	service  *app.QuizService
	registry *app.Registry
	metrics  *metrics.Collector
	closers  []func()
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDependencies(ctx context.Context, cfg config.Config) (*dependencies, error) {
	deps := &dependencies{metrics: metrics.New()}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.closers = append(deps.closers, func() { _ = redisClient.Close() })
	}

	loaders := []memory.QuizLoader{}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			deps.close()
			return nil, err
		}
		deps.closers = append(deps.closers, pool.Close)
		loaders = append(loaders, pgloader.NewQuizLoader(pool))
	}
	if cfg.Quiz.Dir != "" {
		loaders = append(loaders, file.NewQuizLoader(cfg.Quiz.Dir))
	}
	loaders = append(loaders, memory.NewStaticQuizLoader(builtinQuizzes()))
	loader := memory.NewChainLoader(loaders...)

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	var rooms app.RoomStore
	if redisClient != nil {
		quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		rooms = redisstore.NewRoomStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
		rooms = memory.NewRoomStore()
	}

	deps.registry = app.NewRegistry(rooms, quizzes,
		app.WithRoomOptions(app.RoomOptions{ResetAnswers: cfg.Quiz.ResetAnswers}),
		app.WithIdleTimeout(config.TTLDuration(cfg.Rooms.IdleTimeout, 0)),
		app.WithMetrics(deps.metrics),
	)

	logger := log.New(io.Discard, "", 0)
	if cfg.Server.Verbose {
		logger = log.Default()
	}
	deps.service = app.NewQuizService(deps.registry,
		app.WithDefaultName(cfg.Quiz.DefaultName),
		app.WithLogger(logger),
		app.WithServiceMetrics(deps.metrics),
	)
	return deps, nil
}

// builtinQuizzes is the question set served when nothing else provides one.
func builtinQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"default": {
			ID: "default",
			Items: []domain.QuizItem{
				{Question: "What is your name?", Answers: []string{"a", "b", "c", "d"}, CorrectAnswer: "b"},
				{Question: "Is this the next question?", Answers: []string{"yes", "no", "maybe", "what's it to you?"}, CorrectAnswer: "yes"},
			},
		},
	}
}
