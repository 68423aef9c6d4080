package labels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLabelBuilder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		projectID string
	}{
		{"simple project", "my-project"},
		{"single word", "production"},
		{"with numbers", "proj-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewLabelBuilder(tt.projectID).Build()

			assert.Equal(t, tt.projectID, got[KeyProject])
			assert.Equal(t, ManagedByStackctl, got[KeyManagedBy])
			assert.Len(t, got, 2)
		})
	}
}

func TestLabelBuilder_FullEnvironment(t *testing.T) {
	t.Parallel()
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	got := NewLabelBuilder("proj1").
		WithEnvironment(EnvTypePR, "42").
		WithStack("proj1-pr-42-abc").
		WithRevisionIfSet("deadbeef").
		WithExpiry(expiry).
		Build()

	assert.Equal(t, map[string]string{
		KeyManagedBy: ManagedByStackctl,
		KeyProject:   "proj1",
		KeyEnvType:   EnvTypePR,
		KeyEnvName:   "42",
		KeyStack:     "proj1-pr-42-abc",
		KeyRevision:  "deadbeef",
		KeyExpiresAt: "2026-03-01T11:00:00Z",
	}, got)
}

func TestLabelBuilder_OptionalTagsOmitted(t *testing.T) {
	t.Parallel()
	got := NewLabelBuilder("proj1").
		WithRevisionIfSet("").
		WithExpiry(time.Time{}).
		Build()

	assert.NotContains(t, got, KeyRevision)
	assert.NotContains(t, got, KeyExpiresAt)
}

func TestLabelBuilder_BuildReturnsCopy(t *testing.T) {
	t.Parallel()
	lb := NewLabelBuilder("proj1")
	first := lb.Build()
	first[KeyProject] = "mutated"

	assert.Equal(t, "proj1", lb.Build()[KeyProject])
}

func TestLabelBuilder_Merge(t *testing.T) {
	t.Parallel()
	got := NewLabelBuilder("proj1").
		Merge(map[string]string{"team": "web", KeyProject: "override"}).
		Build()

	assert.Equal(t, "web", got["team"])
	assert.Equal(t, "override", got[KeyProject])
}

func TestMatches(t *testing.T) {
	t.Parallel()
	tags := NewLabelBuilder("proj1").WithStack("s1").Build()

	assert.True(t, Matches(tags, ForStack("s1")))
	assert.True(t, Matches(tags, ForProject("proj1")))
	assert.False(t, Matches(tags, ForStack("s2")))
	assert.False(t, Matches(tags, ForEnvType(EnvTypePR)))
	assert.True(t, Matches(tags, nil))
}

func TestParseExpiry(t *testing.T) {
	t.Parallel()

	t.Run("absent", func(t *testing.T) {
		t.Parallel()
		_, ok, err := ParseExpiry(map[string]string{})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		tags := NewLabelBuilder("p").WithExpiry(want).Build()

		got, ok, err := ParseExpiry(tags)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, want.Equal(got))
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()
		_, _, err := ParseExpiry(map[string]string{KeyExpiresAt: "tomorrow"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), KeyExpiresAt)
	})
}
