package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigureSetsLevel(t *testing.T) {
	t.Cleanup(Replace(zap.NewNop()))

	require.NoError(t, Configure(Options{Level: "debug"}))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Configure(Options{Level: "loud", Format: "console", ServiceName: "wattrewards"}))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestReplaceRestoresPrevious(t *testing.T) {
	original := Logger()
	core, recorded := observer.New(zap.InfoLevel)

	restore := Replace(zap.New(core))
	WithModule("otp").Info("sent", zap.String("channel", "sms"))
	restore()

	require.Same(t, original, Logger())
	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "otp", entries[0].ContextMap()["module"])
	require.Equal(t, "sms", entries[0].ContextMap()["channel"])
}

func TestReplaceNilInstallsNop(t *testing.T) {
	t.Cleanup(Replace(nil))
	require.NotNil(t, Logger())
	require.NotPanics(t, func() { Logger().Info("dropped") })
}

func TestMaskPhone(t *testing.T) {
	for in, want := range map[string]string{
		"9876543210":     "******3210",
		" +919876543210": "*********3210",
		"123":            "***",
		"":               "",
	} {
		require.Equal(t, want, MaskPhone(in), in)
	}
}
