//go:build integration

package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-cms/internal/event"
)

func TestTrashLifecycleAgainstPostgres(t *testing.T) {
	env := newEnv(t, 31*24*time.Hour)
	skillID := env.insertSkill(t, "Go")

	status, body := env.do(t, http.MethodDelete, "/api/v1/entities/skills/"+skillID)
	require.Equal(t, http.StatusCreated, status, body.Error)
	trashID := dataField(t, body, "id").(string)
	assert.Equal(t, "Go", dataField(t, body, "entityData").(map[string]any)["name"])

	select {
	case ev := <-env.events:
		assert.Equal(t, event.TypeEntityTrashed, ev.Type)
		assert.Equal(t, "it-admin", ev.ActorID)
	case <-time.After(time.Second):
		t.Fatal("no trash event published")
	}

	deletedAt, exists := env.skillDeletedAt(t, skillID)
	require.True(t, exists)
	require.NotNil(t, deletedAt)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/entities/skills/"+skillID)
	assert.Equal(t, http.StatusNotFound, status, "second soft delete of the same row")

	status, body = env.do(t, http.MethodGet, "/api/v1/trash?entity_type=skills")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Meta.Total)

	status, body = env.do(t, http.MethodPost, "/api/v1/trash/"+trashID+"/restore")
	require.Equal(t, http.StatusOK, status, body.Error)
	assert.Equal(t, "Skill restored", dataField(t, body, "message"))
	assert.Equal(t, skillID, dataField(t, body, "entityId"))

	deletedAt, exists = env.skillDeletedAt(t, skillID)
	require.True(t, exists)
	assert.Nil(t, deletedAt)

	status, _ = env.do(t, http.MethodGet, "/api/v1/trash/"+trashID)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/entities/skills/"+skillID)
	assert.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodDelete, "/api/v1/entities/skills/"+skillID)
	require.Equal(t, http.StatusCreated, status)
	trashID = dataField(t, body, "id").(string)

	status, body = env.do(t, http.MethodDelete, "/api/v1/trash/"+trashID)
	require.Equal(t, http.StatusOK, status, body.Error)
	assert.Equal(t, "Skill permanently deleted", dataField(t, body, "message"))

	_, exists = env.skillDeletedAt(t, skillID)
	assert.False(t, exists, "purged row must be gone")

	status, _ = env.do(t, http.MethodDelete, "/api/v1/trash/"+trashID)
	assert.Equal(t, http.StatusNotFound, status, "second purge")

	status, body = env.do(t, http.MethodGet, "/api/v1/audit?entity_type=skills")
	require.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, body.Meta.Total, 4)
}

func TestRestoreAndPurgeRaceAgainstPostgres(t *testing.T) {
	env := newEnv(t, 31*24*time.Hour)
	skillID := env.insertSkill(t, "Rust")

	status, body := env.do(t, http.MethodDelete, "/api/v1/entities/skills/"+skillID)
	require.Equal(t, http.StatusCreated, status)
	trashID := dataField(t, body, "id").(string)

	requests := []*http.Request{
		env.request(t, http.MethodPost, "/api/v1/trash/"+trashID+"/restore"),
		env.request(t, http.MethodDelete, "/api/v1/trash/"+trashID),
	}

	var wg sync.WaitGroup
	codes := make([]int, len(requests))
	for i, req := range requests {
		i, req := i, req
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			_ = resp.Body.Close()
			codes[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusNotFound}, codes)

	var remaining int
	require.NoError(t, env.db.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM trash_records WHERE id = $1`, trashID).Scan(&remaining))
	assert.Zero(t, remaining)
}

func TestExpiredRecordsAreSweptAgainstPostgres(t *testing.T) {
	env := newEnv(t, 50*time.Millisecond)
	skillID := env.insertSkill(t, "Perl")

	status, body := env.do(t, http.MethodDelete, "/api/v1/entities/skills/"+skillID)
	require.Equal(t, http.StatusCreated, status)
	trashID := dataField(t, body, "id").(string)

	time.Sleep(100 * time.Millisecond)

	status, body = env.do(t, http.MethodPost, "/api/v1/trash/"+trashID+"/restore")
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, "EXPIRED", body.Error.Code)

	status, body = env.do(t, http.MethodPost, "/api/v1/trash/cleanup")
	require.Equal(t, http.StatusOK, status, body.Error)
	assert.EqualValues(t, 1, dataField(t, body, "deletedCount"))
	runID := dataField(t, body, "runId").(string)

	_, exists := env.skillDeletedAt(t, skillID)
	assert.False(t, exists)

	status, body = env.do(t, http.MethodPost, "/api/v1/trash/cleanup")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, dataField(t, body, "deletedCount"), "sweep is idempotent")

	status, body = env.do(t, http.MethodGet, "/api/v1/trash/sweeps/"+runID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", dataField(t, body, "status"))
	assert.Len(t, dataField(t, body, "items"), 1)
}
