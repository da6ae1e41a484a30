package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedJSONLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	l, err := NewLogger(&Config{Level: DebugLevel, Format: "json", AppName: "storefront", Version: "test"})
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	l.SetOutput(buf)
	return l, buf
}

func TestJSONFormatterIncludesAppAndFields(t *testing.T) {
	l, buf := newBufferedJSONLogger(t)

	l.WithReferralCode("DRIP-2024").WithUserID("user-1").Info("tracked")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tracked", entry["message"])
	assert.Equal(t, "storefront", entry["app"])
	assert.Equal(t, "DRIP-2024", entry["referral_code"])
	assert.Equal(t, "user-1", entry["user_id"])
}

func TestReservedFieldsDoNotOverwriteEnvelope(t *testing.T) {
	l, buf := newBufferedJSONLogger(t)

	l.WithField("message", "shadow").Warn("real")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "real", entry["message"])
	assert.Equal(t, "shadow", entry["fields.message"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	parent := NewNopLogger()
	child := parent.WithField("a", 1)

	assert.Len(t, parent.fields, 0)
	assert.Len(t, child.fields, 1)
}

func TestWithContextExtractsRequestValues(t *testing.T) {
	ctx := context.WithValue(context.Background(), ContextKeyRequestID, "req-1") //nolint:staticcheck
	ctx = context.WithValue(ctx, ContextKeyUserID, "user-9")                    //nolint:staticcheck

	l := NewNopLogger().WithContext(ctx)

	assert.Equal(t, "req-1", l.fields["request_id"])
	assert.Equal(t, "user-9", l.fields["user_id"])
}

func TestWithErrorNil(t *testing.T) {
	l := NewNopLogger()
	assert.Same(t, l, l.WithError(nil))
	assert.Equal(t, "boom", l.WithError(errors.New("boom")).fields["error"])
}
