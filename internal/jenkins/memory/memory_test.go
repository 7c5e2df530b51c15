package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/jenkins"
)

func TestServer_Lifecycle(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	s := New()

	exists, err := s.JobExists(ctx, "rock-base-cmake")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateJob(ctx, "rock-base-cmake", "<v1/>"))
	require.NoError(t, s.UpdateJob(ctx, "rock-base-cmake", "<v2/>"))
	require.NoError(t, s.BuildJob(ctx, "rock-base-cmake"))

	config, err := s.JobConfig(ctx, "rock-base-cmake")
	require.NoError(t, err)
	assert.Equal(t, "<v2/>", config)

	job, ok := s.Job("rock-base-cmake")
	require.True(t, ok)
	assert.Equal(t, 1, job.Updates)
	assert.Equal(t, 1, job.Builds)
	assert.Equal(t, []string{"rock-base-cmake"}, s.Jobs())

	require.NoError(t, s.DeleteJob(ctx, "rock-base-cmake"))
	assert.Empty(t, s.Jobs())
}

func TestServer_NativeErrors(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	s := New()
	require.NoError(t, s.CreateJob(ctx, "a", "<a/>"))

	assert.ErrorIs(t, s.CreateJob(ctx, "a", "<a/>"), jenkins.ErrJobExists)
	assert.ErrorIs(t, s.UpdateJob(ctx, "b", "<b/>"), jenkins.ErrJobNotFound)
	assert.ErrorIs(t, s.DeleteJob(ctx, "b"), jenkins.ErrJobNotFound)
	assert.ErrorIs(t, s.BuildJob(ctx, "b"), jenkins.ErrJobNotFound)
	_, err := s.JobConfig(ctx, "b")
	assert.ErrorIs(t, err, jenkins.ErrJobNotFound)

	_, ok := s.Job("b")
	assert.False(t, ok)
}
