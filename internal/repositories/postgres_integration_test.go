//go:build integration

package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"task-tracker/backend/internal/database"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm/logger"
)

type PostgresSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *database.DatabasePool
	store     *repositories.Store
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("task_tracker"),
		postgres.WithUsername("tracker"),
		postgres.WithPassword("tracker"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	s.Require().NoError(err, "start postgres container")

	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	config := database.DefaultPoolConfig()
	config.DSN = dsn
	config.LogLevel = logger.Silent
	s.pool, err = database.NewDatabasePool(config)
	s.Require().NoError(err)
	s.Require().NoError(repositories.Migrate(s.pool.DB))

	s.store = repositories.NewGormStore(s.pool.DB)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		_ = s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.pool.DB.Exec("TRUNCATE tasks, users CASCADE").Error)
}

func (s *PostgresSuite) TestConcurrentRegistrationYieldsOneUser() {
	const attempts = 8

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.store.Users.Create(s.ctx, &models.User{Username: "racer", PasswordHash: "hash"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(s.T(), err, repositories.ErrDuplicate)
	}
	assert.Equal(s.T(), 1, succeeded)

	var count int64
	s.Require().NoError(s.pool.DB.Model(&models.User{}).Where("username = ?", "racer").Count(&count).Error)
	assert.Equal(s.T(), int64(1), count)
}

func (s *PostgresSuite) TestTaskLifecycle() {
	user := &models.User{Username: "pg_user", PasswordHash: "hash"}
	s.Require().NoError(s.store.Users.Create(s.ctx, user))

	task := models.NewTask(user.ID, models.TaskInput{Title: "Ship it"})
	s.Require().NoError(s.store.Tasks.Create(s.ctx, &task))

	tasks, err := s.store.Tasks.FindManyByOwner(s.ctx, user.ID)
	s.Require().NoError(err)
	require.Len(s.T(), tasks, 1)
	assert.Nil(s.T(), tasks[0].Description)

	tasks[0].Apply(models.TaskPatch{Status: models.TaskStatusCompleted})
	s.Require().NoError(s.store.Tasks.Update(s.ctx, &tasks[0]))

	got, err := s.store.Tasks.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	assert.Equal(s.T(), models.TaskStatusCompleted, got.Status)

	s.Require().NoError(s.store.Tasks.Delete(s.ctx, task.ID))
	assert.ErrorIs(s.T(), s.store.Tasks.Delete(s.ctx, task.ID), repositories.ErrNotFound)
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}
