package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "services-test-secret"

type ServicesTestSuite struct {
	suite.Suite
	db     *gorm.DB
	store  *repositories.Store
	tokens *security.TokenManager
	auth   services.AuthService
	tasks  services.TaskService
}

func (s *ServicesTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(repositories.Migrate(db))

	s.db = db
	s.store = repositories.NewGormStore(db)
	s.tokens = security.NewTokenManager(testSecret, time.Hour)
	s.auth = services.NewAuthService(s.store.Users, security.NewBCryptHasher(bcrypt.MinCost), s.tokens, zap.NewNop())
	s.tasks = services.NewTaskService(s.store.Tasks, zap.NewNop())
}

func (s *ServicesTestSuite) TearDownTest() {
	_ = s.store.Close()
}

func (s *ServicesTestSuite) register(username string) *services.AuthResult {
	res, err := s.auth.Register(context.Background(), username, "password123")
	s.Require().NoError(err)
	return res
}

func (s *ServicesTestSuite) TestRegisterThenLogin() {
	ctx := context.Background()

	registered, err := s.auth.Register(ctx, "new_user", "password123")
	s.Require().NoError(err)
	s.NotEmpty(registered.Token)
	s.Equal("new_user", registered.User.Username)
	s.NotEqual("password123", registered.User.PasswordHash)

	loggedIn, err := s.auth.Login(ctx, "new_user", "password123")
	s.Require().NoError(err)
	s.Equal(registered.User.ID, loggedIn.User.ID)

	subject, err := s.tokens.Verify(loggedIn.Token)
	s.Require().NoError(err)
	s.Equal(registered.User.ID, subject)
}

func (s *ServicesTestSuite) TestRegisterDuplicateUsername() {
	ctx := context.Background()
	s.register("taken")

	_, err := s.auth.Register(ctx, "taken", "another-password")
	s.ErrorIs(err, services.ErrUsernameTaken)
	s.Equal("Username already exists", err.Error())

	var count int64
	s.Require().NoError(s.db.Model(&models.User{}).Where("username = ?", "taken").Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *ServicesTestSuite) TestLoginFailuresAreIndistinguishable() {
	ctx := context.Background()
	s.register("alice")

	_, wrongPassword := s.auth.Login(ctx, "alice", "wrong-password")
	_, unknownUser := s.auth.Login(ctx, "nobody", "password123")

	s.ErrorIs(wrongPassword, services.ErrInvalidCredentials)
	s.ErrorIs(unknownUser, services.ErrInvalidCredentials)
	s.Equal(wrongPassword.Error(), unknownUser.Error())
}

func (s *ServicesTestSuite) TestCreateDefaults() {
	owner := s.register("creator").User.ID
	empty := ""

	task, err := s.tasks.Create(context.Background(), owner, models.TaskInput{Title: "Buy milk", Description: &empty})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusPending, task.Status)
	s.Nil(task.Description)
	s.Equal(owner, task.OwnerID)
	s.NotEqual(uuid.Nil, task.ID)
}

func (s *ServicesTestSuite) TestListIsScopedAndNewestFirst() {
	ctx := context.Background()
	alice := s.register("alice").User.ID
	bob := s.register("bob").User.ID

	for _, title := range []string{"one", "two", "three"} {
		_, err := s.tasks.Create(ctx, alice, models.TaskInput{Title: title})
		s.Require().NoError(err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := s.tasks.Create(ctx, bob, models.TaskInput{Title: "bob only"})
	s.Require().NoError(err)

	tasks, err := s.tasks.List(ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(tasks, 3)
	s.Equal([]string{"three", "two", "one"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})

	tasks, err = s.tasks.List(ctx, bob)
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("bob only", tasks[0].Title)
}

func (s *ServicesTestSuite) TestUpdateIsPartial() {
	ctx := context.Background()
	owner := s.register("updater").User.ID
	desc := "details"

	task, err := s.tasks.Create(ctx, owner, models.TaskInput{Title: "Original", Description: &desc})
	s.Require().NoError(err)

	updated, err := s.tasks.Update(ctx, owner, task.ID, models.TaskPatch{Status: models.TaskStatusCompleted})
	s.Require().NoError(err)
	s.Equal("Original", updated.Title)
	s.Require().NotNil(updated.Description)
	s.Equal("details", *updated.Description)
	s.Equal(models.TaskStatusCompleted, updated.Status)

	updated, err = s.tasks.Update(ctx, owner, task.ID, models.TaskPatch{Title: "Renamed", Description: models.Some("")})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Title)
	s.Nil(updated.Description)
	s.Equal(models.TaskStatusCompleted, updated.Status)

	stored, err := s.store.Tasks.FindByID(ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", stored.Title)
	s.Nil(stored.Description)
	s.Equal(owner, stored.OwnerID)
}

func (s *ServicesTestSuite) TestOwnershipChecks() {
	ctx := context.Background()
	alice := s.register("alice").User.ID
	bob := s.register("bob").User.ID

	task, err := s.tasks.Create(ctx, alice, models.TaskInput{Title: "private"})
	s.Require().NoError(err)

	_, err = s.tasks.Update(ctx, bob, task.ID, models.TaskPatch{Title: "hijacked"})
	s.ErrorIs(err, services.ErrForbidden)
	s.ErrorIs(s.tasks.Delete(ctx, bob, task.ID), services.ErrForbidden)

	missing := uuid.Must(uuid.NewV4())
	_, err = s.tasks.Update(ctx, bob, missing, models.TaskPatch{Title: "x"})
	s.ErrorIs(err, services.ErrTaskNotFound)
	s.ErrorIs(s.tasks.Delete(ctx, bob, missing), services.ErrTaskNotFound)

	stored, err := s.store.Tasks.FindByID(ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("private", stored.Title)
}

func (s *ServicesTestSuite) TestDeleteTwice() {
	ctx := context.Background()
	owner := s.register("deleter").User.ID

	task, err := s.tasks.Create(ctx, owner, models.TaskInput{Title: "temporary"})
	s.Require().NoError(err)

	s.NoError(s.tasks.Delete(ctx, owner, task.ID))
	s.ErrorIs(s.tasks.Delete(ctx, owner, task.ID), services.ErrTaskNotFound)
}

func (s *ServicesTestSuite) TestStoreFailuresPropagate() {
	s.Require().NoError(s.store.Close())

	_, err := s.auth.Register(context.Background(), "late", "password123")
	s.Error(err)
	s.NotErrorIs(err, services.ErrUsernameTaken)

	_, err = s.tasks.List(context.Background(), uuid.Must(uuid.NewV4()))
	s.Error(err)
}

func TestServicesTestSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}

type failingUsers struct {
	err error
}

func (f failingUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, f.err
}

func (f failingUsers) Create(ctx context.Context, user *models.User) error {
	return f.err
}

type racingUsers struct{}

func (racingUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

func (racingUsers) Create(ctx context.Context, user *models.User) error {
	return repositories.ErrDuplicate
}

func TestAuthService_RegisterRaceMapsToUsernameTaken(t *testing.T) {
	auth := services.NewAuthService(racingUsers{}, security.NewBCryptHasher(bcrypt.MinCost), security.NewTokenManager(testSecret, time.Hour), nil)

	_, err := auth.Register(context.Background(), "racer", "password123")
	assert.ErrorIs(t, err, services.ErrUsernameTaken)
}

func TestAuthService_LoginStoreFailure(t *testing.T) {
	storeErr := errors.New("connection reset")
	auth := services.NewAuthService(failingUsers{err: storeErr}, security.NewBCryptHasher(bcrypt.MinCost), security.NewTokenManager(testSecret, time.Hour), nil)

	_, err := auth.Login(context.Background(), "anyone", "password123")
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, services.ErrInvalidCredentials)
}
