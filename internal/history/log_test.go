package history

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suPer8Hu/health-assistant/internal/chat"
	"github.com/suPer8Hu/health-assistant/internal/common"
)

func conv(id string) chat.Conversation {
	return chat.Conversation{
		ID:        id,
		CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Preview:   "preview " + id,
		Messages: []chat.Message{
			{Role: chat.RoleAssistant, Content: chat.Greeting},
			{Role: chat.RoleUser, Content: "question " + id},
		},
	}
}

func ids(log []chat.Conversation) []string {
	out := make([]string, len(log))
	for i, c := range log {
		out[i] = c.ID
	}
	return out
}

func TestUpsert_NewestFirstAndBounded(t *testing.T) {
	var log []chat.Conversation
	for i := 0; i < 51; i++ {
		log = Upsert(log, conv(fmt.Sprintf("c%02d", i)))
	}

	require.Len(t, log, MaxEntries)
	assert.Equal(t, "c50", log[0].ID)
	assert.Equal(t, "c01", log[MaxEntries-1].ID)
	_, found := Find(log, "c00")
	assert.False(t, found, "oldest entry should be evicted")
}

func TestUpsert_ReplacesAndMovesToFront(t *testing.T) {
	log := Upsert(nil, conv("a"))
	log = Upsert(log, conv("b"))
	log = Upsert(log, conv("c"))

	updated := conv("a")
	updated.CreatedAt = time.Now()
	updated.Preview = "changed"
	updated.Messages = append(updated.Messages, chat.Message{Role: chat.RoleAssistant, Content: "answer"})
	log = Upsert(log, updated)

	assert.Equal(t, []string{"a", "c", "b"}, ids(log))
	assert.Len(t, log[0].Messages, 3)
	assert.Equal(t, "preview a", log[0].Preview)
	assert.True(t, log[0].CreatedAt.Equal(conv("a").CreatedAt))
}

func TestRemove_Idempotent(t *testing.T) {
	log := Upsert(Upsert(nil, conv("a")), conv("b"))

	log = Remove(log, "a")
	assert.Equal(t, []string{"b"}, ids(log))
	log = Remove(log, "a")
	assert.Equal(t, []string{"b"}, ids(log))
	log = Remove(log, "missing")
	assert.Equal(t, []string{"b"}, ids(log))
}

// testBackend runs the same behavior checks against any backend.
func testBackend(t *testing.T, b Backend, owner, other string) {
	ctx := context.Background()
	store := b.For(owner)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for i := 0; i < MaxEntries+1; i++ {
		require.NoError(t, store.Save(ctx, conv(fmt.Sprintf("c%02d", i))))
	}
	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, MaxEntries)
	assert.Equal(t, "c50", list[0].ID)
	assert.Equal(t, "c01", list[MaxEntries-1].ID)

	// upsert moves to front without duplicating
	again := conv("c10")
	again.Messages = append(again.Messages, chat.Message{Role: chat.RoleAssistant, Content: "answer"})
	require.NoError(t, store.Save(ctx, again))
	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, MaxEntries)
	assert.Equal(t, "c10", list[0].ID)
	assert.Equal(t, "c50", list[1].ID)
	seen := map[string]int{}
	for _, c := range list {
		seen[c.ID]++
	}
	assert.Equal(t, 1, seen["c10"])

	loaded, err := store.Load(ctx, "c10")
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 3)
	assert.Equal(t, "preview c10", loaded.Preview)
	assert.True(t, loaded.CreatedAt.Equal(conv("c10").CreatedAt))

	// delete is idempotent
	require.NoError(t, store.Delete(ctx, "c10"))
	require.NoError(t, store.Delete(ctx, "c10"))
	require.NoError(t, store.Delete(ctx, "never-saved"))
	_, err = store.Load(ctx, "c10")
	assert.ErrorIs(t, err, ErrNotFound)
	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, MaxEntries-1)
	assert.Equal(t, "c50", list[0].ID)

	// logs are per owner
	otherList, err := b.For(other).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, otherList)
	_, err = b.For(other).Load(ctx, "c50")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend(t *testing.T) {
	testBackend(t, NewMemoryBackend(), "alice", "bob")
}

func TestMemoryBackend_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBackend().For("alice")
	require.NoError(t, store.Save(ctx, conv("a")))

	list, err := store.List(ctx)
	require.NoError(t, err)
	list[0].Messages[0].Content = "mutated"

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, chat.Greeting, loaded.Messages[0].Content)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&Entry{}))
	return db
}

func TestSQLBackend(t *testing.T) {
	testBackend(t, NewSQLBackend(openTestDB(t)), "alice", "bob")
}

func TestSQLBackend_SameConversationIDAcrossOwners(t *testing.T) {
	ctx := context.Background()
	b := NewSQLBackend(openTestDB(t))

	require.NoError(t, b.For("alice").Save(ctx, conv("shared")))
	require.NoError(t, b.For("bob").Save(ctx, conv("shared")))
	require.NoError(t, b.For("alice").Delete(ctx, "shared"))

	_, err := b.For("alice").Load(ctx, "shared")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.For("bob").Load(ctx, "shared")
	assert.NoError(t, err)
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	suffix, err := common.NewULID()
	require.NoError(t, err)
	owner, other := "alice-"+suffix, "bob-"+suffix
	t.Cleanup(func() {
		rdb.Del(context.Background(), redisKeyName+":"+owner, redisKeyName+":"+other)
	})

	testBackend(t, NewRedisBackend(rdb), owner, other)
}
