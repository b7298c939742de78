package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-report/internal/model"
)

func TestController_SupersedeDiscardsStaleResults(t *testing.T) {
	gw := new(mockGateway)
	np := new(mockNarrative)

	release := make(chan struct{})
	stale := testIdentity()
	stale.ProviderID = "STALE"
	gw.On("FetchPropertyIdentity", mock.Anything, "1 Old Rd, Anytown, CA").Return(stale, nil).Run(func(mock.Arguments) {
		<-release
	})
	gw.On("FetchPropertyIdentity", mock.Anything, scenarioAddress).Return(testIdentity(), nil)
	expectDependents(gw)
	expectNarratives(np)

	c := NewController(testOptions(gw, np))
	defer c.Close()

	first := c.Submit(context.Background(), Request{Address: "1 Old Rd, Anytown, CA"})
	second := c.Submit(context.Background(), Request{Address: scenarioAddress})
	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, second, c.Current())
	assert.True(t, first.Closed())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, second.Wait(ctx))

	close(release)
	require.NoError(t, first.Wait(ctx))

	old := first.View()
	assert.Nil(t, old.Result.Identity)
	assert.Equal(t, StatusLoading, old.Status)
	assert.False(t, old.DataLoadingComplete)
	gw.AssertNotCalled(t, "FetchComparables", mock.Anything, "STALE")

	cur := second.View()
	assert.True(t, cur.DataLoadingComplete)
	assert.Equal(t, "Z1", cur.Result.Identity.ProviderID)
	assert.Equal(t, model.PhaseComplete, cur.Summary.Phase)
}

func TestController_NewSessionStartsFresh(t *testing.T) {
	gw := new(mockGateway)
	np := new(mockNarrative)
	gw.On("FetchPropertyIdentity", mock.Anything, scenarioAddress).Return(testIdentity(), nil)
	expectDependents(gw)
	expectNarratives(np)

	c := NewController(testOptions(gw, np))
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s1 := c.Submit(ctx, Request{Address: scenarioAddress})
	require.NoError(t, s1.Wait(ctx))
	assert.True(t, s1.View().DataLoadingComplete)

	s2 := c.Submit(ctx, Request{Address: scenarioAddress})
	v := s2.View()
	assert.False(t, v.Summary.Triggered)
	require.NoError(t, s2.Wait(ctx))

	assert.True(t, s2.View().DataLoadingComplete)
	np.AssertNumberOfCalls(t, "GenerateSummary", 2)
	gw.AssertNumberOfCalls(t, "FetchPropertyIdentity", 2)
}

func TestController_Close(t *testing.T) {
	c := NewController(testOptions(new(mockGateway), new(mockNarrative)))
	assert.Nil(t, c.Current())
	c.Close()

	s := c.Submit(context.Background(), Request{Address: scenarioAddress})
	assert.True(t, s.Closed())
	assert.Nil(t, c.Current())
}
