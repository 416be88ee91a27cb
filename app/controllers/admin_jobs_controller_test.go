package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/scheduler"
)

type noopJob struct {
	name string
	runs int
}

func (j *noopJob) Name() string                  { return j.name }
func (j *noopJob) Run(ctx context.Context) error { j.runs++; return nil }

func newJobsApp(t *testing.T) (*fiber.App, *noopJob) {
	t.Helper()

	sched := scheduler.New()
	job := &noopJob{name: "sweep"}
	require.NoError(t, sched.Register("0 0 * * *", job))
	Setup(Deps{Store: repository.NewMemoryStore(), Scheduler: sched})

	app := fiber.New()
	app.Get("/api/v1/admin/jobs", HandleListJobs)
	app.Post("/api/v1/admin/jobs/:name/run", HandleRunJob)
	return app, job
}

func TestListJobs(t *testing.T) {
	app, _ := newJobsApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Jobs []string `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"sweep"}, body.Jobs)
}

func TestRunJob(t *testing.T) {
	app, job := newJobsApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/jobs/sweep/run", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, job.runs)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/jobs/no-such-job/run", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
