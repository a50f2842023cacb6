package app

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-tracker/internal/config"
	"whale-tracker/internal/observability"
	"whale-tracker/internal/storage/memory"
)

func TestNew_Memory(t *testing.T) {
	t.Setenv("WHALE_MARKET_DATA_API_KEY", "secret")
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	a, err := New(context.Background(), cfg, zerolog.Nop(), observability.NewMetrics("test", prometheus.NewRegistry()))
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.WhaleEventStore{}, a.Events)
	assert.IsType(t, &memory.DailyBarStore{}, a.Bars)
	assert.NotNil(t, a.Provider)
	assert.NotNil(t, a.Runner)
}

func TestNew_BadTimezone(t *testing.T) {
	t.Setenv("WHALE_MARKET_DATA_API_KEY", "secret")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Schedule.Timezone = "Mars/Olympus"

	_, err = New(context.Background(), cfg, zerolog.Nop(), nil)
	require.Error(t, err)
}
