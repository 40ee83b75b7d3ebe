//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "copylog",
				"MYSQL_DATABASE":      "copylog",
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("root:copylog@tcp(%s:%s)/copylog?parseTime=true", host, port.Port())
}

func TestMySQLStore(t *testing.T) {
	ctx := context.Background()
	dsn := startMySQL(t)

	s, err := OpenMySQL(ctx, dsn, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, "AIL_issue_abc", []byte(`{"key":"AIL-7"}`), time.Minute))
	require.NoError(t, s.Save(ctx, "AIL_issue_abc", []byte(`{"key":"AIL-8"}`), time.Minute))
	got, ok := s.Fetch(ctx, "AIL_issue_abc")
	require.True(t, ok)
	assert.JSONEq(t, `{"key":"AIL-8"}`, string(got))

	clock := &fakeClock{now: time.Now().Add(time.Hour)}
	s.now = clock.Now
	assert.False(t, s.Contains(ctx, "AIL_issue_abc"))
	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
