package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/internal/narrative"
	"github.com/sells-group/property-report/internal/pipeline"
	"github.com/sells-group/property-report/internal/store"
)

func offlineOptions(gw *mockGateway) pipeline.Options {
	return pipeline.Options{
		Gateway:       gw,
		Canned:        narrative.DefaultCanned(),
		Offline:       true,
		LookupTimeout: time.Second,
		ImagesTimeout: time.Second,
	}
}

func TestRunReport_Offline(t *testing.T) {
	gw := &mockGateway{}
	gw.On("FetchPropertyIdentity", mock.Anything, "123 Main St, Anytown, CA").Return(testIdentity(), nil)
	expectDependents(gw)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	v, err := runReport(ctx, nil, offlineOptions(gw), pipeline.Request{Address: "123 Main St, Anytown, CA"})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusReady, v.Status)
	assert.True(t, v.DataLoadingComplete)
	assert.Equal(t, model.IdentityFromLookup, v.Result.IdentitySource)
	assert.Equal(t, model.PhaseComplete, v.Summary.Phase)
	assert.Equal(t, model.PhaseComplete, v.Valuation.Phase)
	require.NotNil(t, v.Valuation.Payload)
	assert.Equal(t, narrative.DefaultCanned().Valuation.Demo.EstimatedValue, v.Valuation.Payload.EstimatedValue)
	gw.AssertExpectations(t)
}

func TestRunReport_UsesCache(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.PutIdentity(ctx, "123 main st, anytown, ca", testIdentity(), time.Hour))

	gw := &mockGateway{}
	expectDependents(gw)

	v, err := runReport(ctx, st, offlineOptions(gw), pipeline.Request{Address: "123 Main St, Anytown, CA"})
	require.NoError(t, err)

	assert.Equal(t, model.IdentityFromCache, v.Result.IdentitySource)
	gw.AssertNotCalled(t, "FetchPropertyIdentity", mock.Anything, mock.Anything)
}

func TestRunReport_NoData(t *testing.T) {
	gw := &mockGateway{}
	gw.On("FetchPropertyIdentity", mock.Anything, "nowhere").Return(nil, errors.New("not found"))

	v, err := runReport(context.Background(), nil, offlineOptions(gw), pipeline.Request{Address: "nowhere"})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusNoData, v.Status)
	assert.Equal(t, pipeline.NoDataMessage, v.Error)
	assert.False(t, v.Summary.Triggered)
	assert.False(t, v.Valuation.Triggered)
}

func TestRunReport_ContextCancelled(t *testing.T) {
	gw := &mockGateway{}
	gw.On("FetchPropertyIdentity", mock.Anything, mock.Anything).Return(testIdentity(), nil)
	expectDependents(gw)

	opts := offlineOptions(gw)
	opts.Grace = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	v, err := runReport(ctx, nil, opts, pipeline.Request{Address: "123 Main St"})
	if err != nil {
		assert.Contains(t, err.Error(), "report: wait for session")
		return
	}
	assert.False(t, v.DataLoadingComplete)
}

func TestWriteView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeView(&buf, pipeline.View{SessionID: "s-1", Status: pipeline.StatusLoading}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "s-1", decoded["session_id"])
	assert.Equal(t, "loading", decoded["status"])
}
