package bootstrap

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

func TestRegistryCollectsRuntimeMetrics(t *testing.T) {
	families, err := Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}

func TestServeMetricsStops(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "bootstrap-test", Output: io.Discard})
	stop := ServeMetrics(context.Background(), logg, "127.0.0.1:0", Registry())
	assert.NoError(t, stop())
}
