package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	baseLogger := zap.NewNop()

	cfg := LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "ledger-api",
		Insecure:          true,
	}

	provider, err := NewLoggerProvider(ctx, cfg, baseLogger)
	require.NoError(t, err)
	assert.NotNil(t, provider)
	assert.False(t, provider.IsEnabled())
	assert.Nil(t, provider.GetLoggerProvider())

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestLoggerProvider_GetConfig(t *testing.T) {
	ctx := context.Background()

	cfg := LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "ledger-api",
		Insecure:          true,
	}

	provider, err := NewLoggerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, cfg, provider.GetConfig())
}

func TestLoggerProvider_ForceFlush_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, provider.ForceFlush(ctx))
}

func TestLoggerProvider_Shutdown_MultipleCalls(t *testing.T) {
	ctx := context.Background()

	provider, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, provider.Shutdown(ctx))
	assert.NoError(t, provider.Shutdown(ctx))
}

// No collector needs to be running. The exporter buffers until one
// becomes reachable, so construction must still succeed.
func TestNewLoggerProvider_EnabledButNoCollector(t *testing.T) {
	ctx := context.Background()

	cfg := LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "ledger-api",
		Insecure:          true,
	}

	provider, err := NewLoggerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.True(t, provider.IsEnabled())
	assert.NotNil(t, provider.GetLoggerProvider())

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestNewZapOTELCore_NilProvider(t *testing.T) {
	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "ledger-api",
		LoggerProvider: nil,
		Level:          zapcore.InfoLevel,
	})
	require.NotNil(t, core)

	// Without a provider the bridge degrades to a nop core
	assert.False(t, core.Enabled(zapcore.InfoLevel))
}

func TestNewZapOTELCore_DisabledProvider(t *testing.T) {
	ctx := context.Background()

	logsProvider, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "ledger-api",
		LoggerProvider: logsProvider,
		Level:          zapcore.InfoLevel,
	})
	require.NotNil(t, core)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
}

func TestNewZapOTELCore_WithEnabledProvider(t *testing.T) {
	ctx := context.Background()

	logsProvider, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "ledger-api",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	defer logsProvider.Shutdown(ctx)

	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "ledger-api",
		LoggerProvider: logsProvider,
		Level:          zapcore.DebugLevel,
	})
	require.NotNil(t, core)

	assert.True(t, core.Enabled(zapcore.DebugLevel))
	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewZapOTELCore_WithLevelFilter(t *testing.T) {
	ctx := context.Background()

	logsProvider, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "ledger-api",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	defer logsProvider.Shutdown(ctx)

	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "ledger-api",
		LoggerProvider: logsProvider,
		Level:          zapcore.WarnLevel,
	})
	require.NotNil(t, core)

	_, isFiltered := core.(*levelFilterCore)
	assert.True(t, isFiltered, "core should be wrapped with levelFilterCore")

	assert.False(t, core.Enabled(zapcore.DebugLevel))
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewBridgedLogger(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zapcore.InfoLevel)

	// Nop OTEL core stands in for the collector side
	logger := NewBridgedLogger(observedZapCore, zapcore.NewNopCore(), zap.AddCaller())

	logger.Info("entry posted", zap.String("entry_number", "JE-2026-0001"))
	logger.Debug("below threshold")
	logger.Warn("period near close")

	logs := observedLogs.All()
	require.Len(t, logs, 2)

	assert.Equal(t, "entry posted", logs[0].Message)
	assert.Equal(t, zapcore.InfoLevel, logs[0].Level)
	assert.Contains(t, logs[0].Context, zap.String("entry_number", "JE-2026-0001"))

	assert.Equal(t, "period near close", logs[1].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[1].Level)
}

func TestCreateBridgedLoggerFromConfig(t *testing.T) {
	ctx := context.Background()

	logsProvider, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	baseConfig := &BaseLoggerConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	logger, err := CreateBridgedLoggerFromConfig(baseConfig, logsProvider, "ledger-api")
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("reconciliation run finished",
		zap.String("request_id", "req-123"),
		zap.String("tenant_id", "tenant-456"),
	)
	logger.Sync()
}

func TestDefaultBaseLoggerConfig(t *testing.T) {
	cfg := DefaultBaseLoggerConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseLogLevel(tc.input))
		})
	}
}

func TestCreateLogEncoder(t *testing.T) {
	jsonEncoder := createLogEncoder(&BaseLoggerConfig{
		Format:     "json",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	require.NotNil(t, jsonEncoder)

	buf, err := jsonEncoder.EncodeEntry(
		zapcore.Entry{Level: zapcore.InfoLevel, Message: "entry posted"},
		nil,
	)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), `"msg":"entry posted"`)

	consoleEncoder := createLogEncoder(&BaseLoggerConfig{
		Format:     "console",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	require.NotNil(t, consoleEncoder)

	buf, err = consoleEncoder.EncodeEntry(
		zapcore.Entry{Level: zapcore.InfoLevel, Message: "entry posted"},
		nil,
	)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), `"level"`)
}

func TestCreateLogWriter(t *testing.T) {
	assert.NotNil(t, createLogWriter("stdout"))
	assert.NotNil(t, createLogWriter("stderr"))
	// File paths fall back to stdout
	assert.NotNil(t, createLogWriter("/tmp/ledger.log"))
}

func TestCreateBaseCore(t *testing.T) {
	core := createBaseCore(&BaseLoggerConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	require.NotNil(t, core)

	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.False(t, core.Enabled(zapcore.DebugLevel))
}

func TestLevelFilterCore(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zapcore.DebugLevel)

	filteredCore := &levelFilterCore{
		Core:     observedZapCore,
		minLevel: zapcore.WarnLevel,
	}

	assert.True(t, filteredCore.Enabled(zapcore.WarnLevel))
	assert.True(t, filteredCore.Enabled(zapcore.ErrorLevel))
	assert.False(t, filteredCore.Enabled(zapcore.InfoLevel))
	assert.False(t, filteredCore.Enabled(zapcore.DebugLevel))

	logger := zap.New(filteredCore)
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	logs := observedLogs.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "warn", logs[0].Message)
	assert.Equal(t, "error", logs[1].Message)
}

func TestLevelFilterCore_With(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zapcore.DebugLevel)

	filteredCore := &levelFilterCore{
		Core:     observedZapCore,
		minLevel: zapcore.WarnLevel,
	}

	childCore := filteredCore.With([]zapcore.Field{zap.String("service", "ledger-api")})
	require.NotNil(t, childCore)

	// With must preserve the filter wrapper
	lfCore, ok := childCore.(*levelFilterCore)
	require.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, lfCore.minLevel)

	zap.New(childCore).Warn("rate sync degraded")

	logs := observedLogs.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "rate sync degraded", logs[0].Message)
	assert.Equal(t, "ledger-api", logs[0].ContextMap()["service"])
}
