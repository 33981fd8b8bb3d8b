package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/party-queue-client/pkg/models"
)

func item(uri string, up, down, at int) models.QueueItem {
	return models.QueueItem{
		TrackURI:  uri,
		TrackName: "Artist - " + uri,
		UpVotes:   up,
		DownVotes: down,
		Timestamp: epoch.Add(time.Duration(at) * time.Second),
	}
}

func TestState_ScenarioOrdering(t *testing.T) {
	s := NewState()
	ok := s.ApplySnapshot(s.NextSequence(), []models.QueueItem{
		item("A", 2, 0, 10),
		item("B", 2, 0, 5),
		item("C", 5, 0, 20),
	})
	require.True(t, ok)

	rows := s.Render()
	require.Len(t, rows, 3)
	assert.Equal(t, "C", rows[0].Track.URI)
	assert.Equal(t, "B", rows[1].Track.URI)
	assert.Equal(t, "A", rows[2].Track.URI)
	assert.True(t, rows[0].UpNext)
	assert.False(t, rows[1].UpNext)
	assert.Equal(t, 1, rows[0].Position)
	assert.Equal(t, "Artist", rows[0].Artist)
}

func TestState_RepeatedVoteUpdateKeepsScore(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(s.NextSequence(), []models.QueueItem{item("A", 0, 0, 1)})

	s.ApplyVote("A", 3, 1)
	first := s.Render()
	s.ApplyVote("A", 3, 1)
	second := s.Render()

	require.Len(t, second, 1)
	assert.Equal(t, "Score: 2", second[0].ScoreLabel)
	assert.Equal(t, first[0].Score, second[0].Score)
	assert.Equal(t, 2, s.Votes().NetScore("A"))
}

func TestState_ClearEmptiesEverything(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(s.NextSequence(), []models.QueueItem{item("A", 1, 0, 1), item("B", 0, 0, 2)})
	s.ApplyVote("Z", 4, 0)

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Votes().Len())
	assert.Empty(t, s.Render())
	assert.Empty(t, Order([]Entry{}, s.Votes()))
}

func TestState_DiscardsStaleSnapshots(t *testing.T) {
	s := NewState()
	older := s.NextSequence()
	newer := s.NextSequence()

	require.True(t, s.ApplySnapshot(newer, []models.QueueItem{item("new", 0, 0, 1)}))
	assert.False(t, s.ApplySnapshot(older, []models.QueueItem{item("old", 0, 0, 1)}))

	assert.True(t, s.Contains("new"))
	assert.False(t, s.Contains("old"))

	// re-applying the latest response is allowed
	assert.True(t, s.ApplySnapshot(newer, []models.QueueItem{item("new", 1, 0, 1)}))
	assert.Equal(t, 1, s.Votes().NetScore("new"))
}

func TestState_ClearDiscardsSnapshotsRequestedBefore(t *testing.T) {
	s := NewState()
	inFlight := s.NextSequence()

	s.Clear()
	assert.False(t, s.ApplySnapshot(inFlight, []models.QueueItem{item("A", 3, 0, 1), item("B", 1, 0, 2)}))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Votes().Len())

	require.True(t, s.ApplySnapshot(s.NextSequence(), []models.QueueItem{item("C", 0, 0, 3)}))
	assert.True(t, s.Contains("C"))
}

func TestState_VoteUpdateSurvivesOlderSnapshot(t *testing.T) {
	s := NewState()
	inFlight := s.NextSequence()

	s.ApplyVote("A", 5, 0)
	require.True(t, s.ApplySnapshot(inFlight, []models.QueueItem{item("A", 1, 0, 1), item("B", 2, 0, 2)}))
	assert.Equal(t, 5, s.Votes().NetScore("A"))
	assert.Equal(t, 2, s.Votes().NetScore("B"))
	assert.True(t, s.Contains("B"), "the snapshot's queue still applies")

	require.True(t, s.ApplySnapshot(s.NextSequence(), []models.QueueItem{item("A", 4, 0, 1)}))
	assert.Equal(t, 4, s.Votes().NetScore("A"), "snapshots requested after the vote win")
}

func TestState_MissingTimestampUsesReceiptTime(t *testing.T) {
	s := NewState()
	received := epoch.Add(time.Hour)
	s.now = func() time.Time { return received }

	s.ApplySnapshot(s.NextSequence(), []models.QueueItem{
		{TrackURI: "late", TrackName: "late"},
		item("early", 0, 0, 1),
		{TrackURI: ""},
	})

	ordered := s.Ordered()
	require.Len(t, ordered, 2)
	assert.Equal(t, "early", ordered[0].Track.URI)
	assert.Equal(t, received, ordered[1].EnqueuedAt)
}

func TestState_RenderTagsMovement(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(s.NextSequence(), []models.QueueItem{item("A", 0, 0, 1), item("B", 0, 0, 2)})
	first := s.Render()
	assert.Equal(t, MovementNone, first[0].Movement)

	s.ApplyVote("B", 2, 0)
	rows := s.Render()

	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].Track.URI)
	assert.Equal(t, MovementUp, rows[0].Movement)
	assert.Equal(t, MovementDown, rows[1].Movement)
}

func TestState_Head(t *testing.T) {
	s := NewState()
	_, ok := s.Head()
	assert.False(t, ok)

	s.ApplySnapshot(s.NextSequence(), []models.QueueItem{item("A", 0, 0, 1), item("B", 1, 0, 2)})
	head, ok := s.Head()
	require.True(t, ok)
	assert.Equal(t, "B", head.Track.URI)
}

func TestState_ItemsRoundTrip(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(s.NextSequence(), []models.QueueItem{item("A", 1, 0, 1), item("B", 4, 1, 2)})

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].TrackURI)
	assert.Equal(t, 3, items[0].VoteScore)

	restored := NewState()
	require.True(t, restored.ApplySnapshot(0, items))
	assert.Equal(t, s.Render(), restored.Render())
}
