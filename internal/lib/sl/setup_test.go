package sl_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
)

func TestNew_HandlerPerEnv(t *testing.T) {
	var buf bytes.Buffer

	local := sl.New(sl.EnvLocal, &buf)
	assert.True(t, local.Enabled(context.Background(), slog.LevelDebug))
	local.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	dev := sl.New(sl.EnvDev, &buf)
	assert.True(t, dev.Enabled(context.Background(), slog.LevelDebug))
	dev.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	prod := sl.New(sl.EnvProd, &buf)
	assert.False(t, prod.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, prod.Enabled(context.Background(), slog.LevelInfo))
}
