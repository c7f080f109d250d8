//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio-cms/internal/auth"
	"portfolio-cms/internal/config"
	"portfolio-cms/internal/database"
	"portfolio-cms/internal/entity"
	"portfolio-cms/internal/event"
	"portfolio-cms/internal/handler"
	"portfolio-cms/internal/lock"
	"portfolio-cms/internal/middleware"
	"portfolio-cms/internal/model"
	"portfolio-cms/internal/repository"
	"portfolio-cms/internal/router"
	"portfolio-cms/internal/service"
)

const testSecret = "integration-secret-0123456789abcdef"

type testEnv struct {
	db     *database.DB
	server *httptest.Server
	token  string
	events <-chan event.Event
	tags   []string
}

// seedSQL inserts a minimal live row per entity table and returns its id.
var seedSQL = map[string]string{
	model.EntityProjects:     `INSERT INTO projects (title) VALUES ('Portfolio site') RETURNING id::text`,
	model.EntityBlogs:        `INSERT INTO blogs (title, slug) VALUES ('Hello', gen_random_uuid()::text) RETURNING id::text`,
	model.EntityServices:     `INSERT INTO services (title) VALUES ('Consulting') RETURNING id::text`,
	model.EntitySkills:       `INSERT INTO skills (name) VALUES ('Go') RETURNING id::text`,
	model.EntityEducation:    `INSERT INTO education (institution) VALUES ('University') RETURNING id::text`,
	model.EntityExperience:   `INSERT INTO experience (company, position) VALUES ('Acme', 'Engineer') RETURNING id::text`,
	model.EntityAchievements: `INSERT INTO achievements (title) VALUES ('Award') RETURNING id::text`,
	model.EntityReferences:   `INSERT INTO "references" (name) VALUES ('Jordan') RETURNING id::text`,
	model.EntityTestimonials: `INSERT INTO testimonials (name, content) VALUES ('Sam', 'Great work') RETURNING id::text`,
	model.EntityFAQ:          `INSERT INTO faq (question, answer) VALUES ('Why?', 'Because') RETURNING id::text`,
}

func openDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 5, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))

	_, err = db.Pool.Exec(ctx, `TRUNCATE trash_records, sweep_runs, sweep_run_items, audit_entries,
		projects, blogs, services, skills, education, experience, achievements, "references", testimonials, faq`)
	require.NoError(t, err)

	return db
}

// newEnv wires the real stack against Postgres with the given retention.
func newEnv(t *testing.T, retention time.Duration) *testEnv {
	t.Helper()

	db := openDB(t)
	pool := db.Pool

	registry, err := entity.NewPostgresRegistry(pool)
	require.NoError(t, err)

	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	auditService := service.NewAuditService(repository.NewAuditRepository(pool))
	trashService := service.NewTrashService(
		repository.NewTrashRepository(pool),
		database.NewTxManager(pool),
		registry,
		bus,
		auditService,
		nil,
		retention,
	)
	sweeper := service.NewSweeper(trashService, repository.NewSweepRepository(pool), lock.NewLocalLock(), time.Minute, time.Hour, bus, auditService, nil)

	verifier, err := auth.NewHMACVerifier(testSecret, auth.LocalIssuer)
	require.NoError(t, err)
	token, err := verifier.Issue("it-admin", "integration", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{
		RequestTimeout: 10 * time.Second,
		CORSOrigins:    []string{"*"},
		AdminGroups:    []string{"admin"},
	}

	h := router.New(cfg, middleware.NewAuthMiddleware(verifier), router.Handlers{
		Health: handler.NewHealthHandler(db),
		Trash:  handler.NewTrashHandler(trashService, sweeper),
		Entity: handler.NewEntityHandler(service.NewEntityService(registry), trashService),
		Audit:  handler.NewAuditHandler(auditService),
		Docs:   handler.NewDocsHandler(),
	}, nil, nil)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return &testEnv{db: db, server: server, token: token, events: events, tags: registry.Tags()}
}

func (e *testEnv) insertSkill(t *testing.T, name string) string {
	t.Helper()

	var id string
	err := e.db.Pool.QueryRow(context.Background(),
		`INSERT INTO skills (name, category) VALUES ($1, 'backend') RETURNING id::text`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func (e *testEnv) insertEntity(t *testing.T, tag string) string {
	t.Helper()

	query, ok := seedSQL[tag]
	require.True(t, ok, "no seed statement for %s", tag)

	var id string
	require.NoError(t, e.db.Pool.QueryRow(context.Background(), query).Scan(&id))
	return id
}

func (e *testEnv) exec(t *testing.T, sql string, args ...any) {
	t.Helper()

	_, err := e.db.Pool.Exec(context.Background(), sql, args...)
	require.NoError(t, err)
}

func (e *testEnv) skillDeletedAt(t *testing.T, id string) (*time.Time, bool) {
	t.Helper()

	var deletedAt *time.Time
	err := e.db.Pool.QueryRow(context.Background(), `SELECT deleted_at FROM skills WHERE id = $1`, id).Scan(&deletedAt)
	if err != nil {
		return nil, false
	}
	return deletedAt, true
}

func (e *testEnv) request(t *testing.T, method string, path string) *http.Request {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+e.token)
	return req
}

func (e *testEnv) do(t *testing.T, method string, path string) (int, model.APIResponse) {
	t.Helper()

	resp, err := http.DefaultClient.Do(e.request(t, method, path))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body model.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func dataField(t *testing.T, body model.APIResponse, key string) any {
	t.Helper()

	data, ok := body.Data.(map[string]any)
	require.True(t, ok, "data is %T", body.Data)
	return data[key]
}
