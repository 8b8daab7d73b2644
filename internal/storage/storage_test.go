package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ryze-backend/internal/model"
)

func testSession(id string) *model.Session {
	now := time.Now()
	return &model.Session{
		ID:        id,
		Title:     "test",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func runStorageSuite(t *testing.T, store Storage) {
	require.NoError(t, store.Init())
	defer store.Close()

	require.NoError(t, store.CreateSession(testSession("s1")))

	got, err := store.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	_, err = store.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.AddMessage("s1", &model.Message{
		ID: "m1", SessionID: "s1", Role: model.RoleUser, Content: "hi", Timestamp: time.Now(),
	}))
	require.NoError(t, store.AddMessage("s1", &model.Message{
		ID: "m2", SessionID: "s1", Role: model.RoleAssistant, Content: "hello", Timestamp: time.Now(),
	}))

	messages, err := store.GetMessages("s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m2", messages[1].ID)

	err = store.AddMessage("missing", &model.Message{ID: "m3"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, store.DeleteSession("s1"))
	_, err = store.GetSession("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStorage(t *testing.T) {
	runStorageSuite(t, NewMemoryStorage())
}

func TestDiskStorage(t *testing.T) {
	runStorageSuite(t, NewDiskStorage(t.TempDir(), 10))
}

func TestMemoryAddMessageBumpsUpdatedAt(t *testing.T) {
	store := NewMemoryStorage()
	require.NoError(t, store.Init())

	session := testSession("s1")
	past := time.Now().Add(-time.Hour)
	session.CreatedAt = past
	session.UpdatedAt = past
	require.NoError(t, store.CreateSession(session))

	require.NoError(t, store.AddMessage("s1", &model.Message{ID: "m1", Timestamp: time.Now()}))

	// 活跃会话的 UpdatedAt 要前移，否则 TTL 清理会按创建时间误删
	got, err := store.GetSession("s1")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(past))
}

func TestGetSessionReturnsSnapshot(t *testing.T) {
	stores := map[string]Storage{
		"memory": NewMemoryStorage(),
		"disk":   NewDiskStorage(t.TempDir(), 10),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Init())
			require.NoError(t, store.CreateSession(testSession("s1")))

			before, err := store.GetSession("s1")
			require.NoError(t, err)

			require.NoError(t, store.AddMessage("s1", &model.Message{ID: "m1", Content: "hi"}))

			// 先前拿到的快照不随后续写入变化
			assert.Empty(t, before.Messages)

			after, err := store.GetSession("s1")
			require.NoError(t, err)
			require.Len(t, after.Messages, 1)

			// 改快照也不会穿透到存储
			after.Messages[0].Content = "mutated"
			fresh, err := store.GetSession("s1")
			require.NoError(t, err)
			assert.Equal(t, "hi", fresh.Messages[0].Content)
		})
	}
}

func TestDiskStorageSurvivesReload(t *testing.T) {
	dir := t.TempDir()

	store := NewDiskStorage(dir, 10)
	require.NoError(t, store.Init())
	require.NoError(t, store.CreateSession(testSession("s1")))
	require.NoError(t, store.AddMessage("s1", &model.Message{
		ID: "m1", SessionID: "s1", Role: model.RoleUser, Content: "persisted", Timestamp: time.Now(),
	}))
	require.NoError(t, store.Close())

	reloaded := NewDiskStorage(dir, 10)
	require.NoError(t, reloaded.Init())

	messages, err := reloaded.GetMessages("s1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "persisted", messages[0].Content)
}
