package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"StatusServer/apps/status/internal/testutil"
	"StatusServer/config"
	"StatusServer/pkg/async"
	"StatusServer/pkg/logger"
	"StatusServer/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var cliLoggerOnce sync.Once

func initCLITestLogger() {
	cliLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		gin.SetMode(gin.TestMode)
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	initCLITestLogger()

	out, err := execute(t, "token", "--user", "alice", "--device", "d1")
	require.NoError(t, err)

	claims, err := util.ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserName)
	assert.Equal(t, "d1", claims.DeviceID)

	_, err = execute(t, "token", "--user", "alice")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	initCLITestLogger()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "status.db")
	cfgPath := filepath.Join(dir, "status.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  driver: sqlite\n  dsn: "+dbPath+"\n"), 0o600))

	out, err := execute(t, "migrate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestMigrateCommandMissingConfig(t *testing.T) {
	initCLITestLogger()
	_, err := execute(t, "migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildAppWithoutRedis(t *testing.T) {
	initCLITestLogger()
	cfg := config.Default()
	cfg.Registry.Mode = config.RegistryModeRedis

	application, err := buildApp(cfg, testutil.SetupTestDB(t), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, application.WSHandler)

	w := httptest.NewRecorder()
	application.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	application.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/friends", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, 0, application.WSHandler.Shutdown(t.Context()))
}

func TestServeReleasesPoolsWhenBuildFails(t *testing.T) {
	initCLITestLogger()
	t.Cleanup(func() {
		logger.ReplaceGlobal(zap.NewNop())
	})
	t.Setenv("STATUS_REDIS_ADDR", "")

	var relayPool *ants.Pool
	original := newApp
	newApp = func(_ *config.Config, _ *gorm.DB, _ *redis.Client, pool *ants.Pool) (*app, error) {
		relayPool = pool
		return nil, errors.New("assemble failed")
	}
	t.Cleanup(func() {
		newApp = original
	})

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "status.yaml")
	cfgBody := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "status.db") + "\n" +
		"redis:\n  addr: \"\"\n" +
		"logger:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgBody), 0o600))

	err := runServe(t.Context(), cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assemble failed")

	require.NotNil(t, relayPool)
	assert.True(t, relayPool.IsClosed())
	assert.ErrorIs(t, async.Submit(func() {}), async.ErrNotInitialized)
}
