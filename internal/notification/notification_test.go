package notification

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerNotifierWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	err := n.Send(context.Background(), Message{Kind: KindMovementRecorded, Destination: "user-1", Body: "CREDIT 10"})
	require.NoError(t, err)
	require.True(t, strings.Contains(buf.String(), "kind="+KindMovementRecorded))
	require.True(t, strings.Contains(buf.String(), "destination=user-1"))

	var nilNotifier *LoggerNotifier
	require.NoError(t, nilNotifier.Send(context.Background(), Message{}))
}

func TestRecorderReturnsCopy(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Send(context.Background(), Message{Kind: KindMovementRemoved}))

	got := r.Messages()
	require.Len(t, got, 1)
	got[0].Kind = "changed"
	require.Equal(t, KindMovementRemoved, r.Messages()[0].Kind)
}
