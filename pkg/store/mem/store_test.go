package mem_test

import (
	"context"
	"sync"
	"testing"

	"github.com/lukeeey/bibliothek-build-monitor/pkg/store"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store/mem"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store/params"
	"github.com/stretchr/testify/require"
)

func TestOpenDriver(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, params.Store{Type: mem.DriverName})
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetOrCreateProject(ctx, "paper", "Paper")
	require.NoError(t, err)
}

func TestGetOrCreateProject(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	created, err := s.GetOrCreateProject(ctx, "paper", "Paper")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "paper", created.Name)
	require.Equal(t, "Paper", created.FriendlyName)

	// second call returns the existing document, first writer wins on friendly name
	existing, err := s.GetOrCreateProject(ctx, "paper", "Something Else")
	require.NoError(t, err)
	require.Equal(t, created.ID, existing.ID)
	require.Equal(t, "Paper", existing.FriendlyName)
	require.Len(t, s.Projects(), 1)
}

func TestGetOrCreateHierarchy(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	project, err := s.GetOrCreateProject(ctx, "paper", "Paper")
	require.NoError(t, err)

	group, err := s.GetOrCreateVersionGroup(ctx, project.ID, "1.19")
	require.NoError(t, err)
	groupAgain, err := s.GetOrCreateVersionGroup(ctx, project.ID, "1.19")
	require.NoError(t, err)
	require.Equal(t, group.ID, groupAgain.ID)

	version, err := s.GetOrCreateVersion(ctx, project.ID, group.ID, "1.19.4")
	require.NoError(t, err)
	require.False(t, version.Time.IsZero())
	versionAgain, err := s.GetOrCreateVersion(ctx, project.ID, group.ID, "1.19.4")
	require.NoError(t, err)
	require.Equal(t, version.ID, versionAgain.ID)
	require.Equal(t, version.Time, versionAgain.Time)

	// same group name under a different project is a different group
	other, err := s.GetOrCreateProject(ctx, "velocity", "Velocity")
	require.NoError(t, err)
	otherGroup, err := s.GetOrCreateVersionGroup(ctx, other.ID, "1.19")
	require.NoError(t, err)
	require.NotEqual(t, group.ID, otherGroup.ID)
}

func TestInsertBuild_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := mem.New()
	build := &store.Build{
		ProjectID: "p",
		VersionID: "v",
		Number:    50,
		Channel:   store.DefaultChannel,
	}

	first, err := s.InsertBuild(ctx, build)
	require.NoError(t, err)
	second, err := s.InsertBuild(ctx, build)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Len(t, s.Builds(), 2)
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := mem.New()
	const workers = 10

	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.GetOrCreateProject(ctx, "paper", "Paper")
			require.NoError(t, err)
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	require.Len(t, s.Projects(), 1)
	for i := 1; i < workers; i++ {
		require.Equal(t, ids[0], ids[i])
	}
}
