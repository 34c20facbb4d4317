package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	pgloader "quizroom-service/internal/infra/postgres"
	pgmigrations "quizroom-service/internal/infra/postgres/migrations"
	infraredis "quizroom-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

type recorder struct {
	mu   sync.Mutex
	msgs []domain.Response
}

func (r *recorder) Publish(resp domain.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, resp)
}

func (r *recorder) kinds() []domain.ResponseKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ResponseKind, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Kind)
	}
	return out
}

func (r *recorder) last() domain.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

func TestRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuizLoader(pool)
	if err := loader.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	rooms := infraredis.NewRoomStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(app.NewRegistry(rooms, quizRepo))

	room, err := service.CreateRoom(ctx, "geo")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if n, err := redisClient.Exists(ctx, "quiz:room:"+room.Key()).Result(); err != nil || n != 1 {
		t.Fatalf("expected room marker in redis, got n=%d err=%v", n, err)
	}

	alice, bob := &recorder{}, &recorder{}
	ca := service.Connect(alice, "Alice")
	cb := service.Connect(bob, "Bob")
	join := fmt.Sprintf(`{"JOIN_ROOM":%q}`, room.Key())
	service.Dispatch(ctx, ca, []byte(join))
	service.Dispatch(ctx, cb, []byte(join))

	if got := room.Len(); got != 2 {
		t.Fatalf("expected 2 participants, got %d", got)
	}

	service.Dispatch(ctx, ca, []byte(`{"request":"SET_ANSWER","props":{"answer":"Paris"}}`))
	service.Dispatch(ctx, cb, []byte(`{"request":"SET_ANSWER","props":{"answer":"Lyon"}}`))

	last := alice.last()
	if last.Kind != domain.ResponseQuestionsInfo {
		t.Fatalf("expected QUESTIONS_INFO after advance, got %v", alice.kinds())
	}
	info, ok := last.Props.(domain.QuestionsInfoProps)
	if !ok || info.Index != 1 || info.Amount != 2 {
		t.Fatalf("unexpected info props: %+v", last.Props)
	}

	snap := room.Snapshot()
	scores := map[string]int{}
	for _, p := range snap.Participants {
		scores[p.Name] = p.Score
	}
	if scores["Alice"] != 1 || scores["Bob"] != 0 {
		t.Fatalf("unexpected scores: %+v", scores)
	}

	service.Disconnect(ca)
	service.Disconnect(cb)
	if got := room.Len(); got != 0 {
		t.Fatalf("expected empty room, got %d", got)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "geo",
		Items: []domain.QuizItem{
			{Question: "Capital of France?", Answers: []string{"Paris", "Lyon", "Nice"}, CorrectAnswer: "Paris"},
			{Question: "Longest river in France?", Answers: []string{"Seine", "Loire", "Rhone"}, CorrectAnswer: "Loire"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
