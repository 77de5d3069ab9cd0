package eventlog

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"console debug", "debug", "console", false},
		{"json warn", "warn", "json", false},
		{"default format", "info", "", false},
		{"bad level", "loud", "console", true},
		{"bad format", "info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestSink_Handle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := New(zap.New(core))
	ctx := context.Background()

	sink.Handle(ctx, schema.Event{Action: schema.EventCommitAdded, Path: "a.txt", Kind: schema.FileKind, TxnID: "t1"})
	sink.Handle(ctx, schema.Event{Action: schema.EventCommitCompleted, Path: "", Revision: 7, TxnID: "t1"})
	sink.Handle(ctx, schema.Event{Action: schema.EventSkipped, Path: "b.txt",
		Err: contract.NewError(contract.ValidationError, contract.CodeWCFoundConflict, "Conflict on '%s'", "b.txt")})
	sink.Handle(ctx, schema.Event{Action: schema.EventAbortFailed, Path: "", Err: errors.New("boom")})

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "commit_added", entries[0].Message)
	assert.Equal(t, "events", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a.txt", fields["path"])
	assert.Equal(t, "file", fields["kind"])
	assert.Equal(t, "t1", fields["txn"])
	assert.NotContains(t, fields, "revision")

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, int64(7), entries[1].ContextMap()["revision"])

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, contract.CodeWCFoundConflict, entries[2].ContextMap()["code"])

	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestNew_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil).Handle(context.Background(), schema.Event{Action: schema.EventLocked})
	})
}
