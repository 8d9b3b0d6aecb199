package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection to :memory: is its own database; keep one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&RoomModel{}, &MessageModel{}, &MembershipModel{}))
	return db
}

func seedRoom(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	repo := NewGormRoomRepository(db)
	require.NoError(t, repo.Create(context.Background(), &domain.Room{
		ID:       id,
		Name:     "room " + id,
		Category: domain.CategoryGeneral,
		Region:   domain.RegionGlobal,
	}))
}

func TestRoomRepositoryCreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewGormRoomRepository(db)
	ctx := context.Background()

	room := &domain.Room{
		Name:     "lobby",
		Emoji:    "💬",
		Category: domain.CategoryGeneral,
		Region:   domain.RegionGlobal,
	}
	require.NoError(t, repo.Create(ctx, room))
	require.NotEmpty(t, room.ID, "create assigns an id when absent")

	got, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "lobby", got.Name)
	assert.Equal(t, domain.CategoryGeneral, got.Category)
}

func TestRoomRepositoryGetMissing(t *testing.T) {
	db := testDB(t)
	repo := NewGormRoomRepository(db)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRepositoryListFilterAndPaginate(t *testing.T) {
	db := testDB(t)
	repo := NewGormRoomRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Room{
			Name:     "general",
			Category: domain.CategoryGeneral,
			Region:   domain.RegionGlobal,
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Room{
		Name:     "gamers",
		Category: domain.CategoryGaming,
		Region:   domain.RegionGlobal,
	}))

	rooms, total, err := repo.List(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, rooms, 2)

	rooms, total, err = repo.List(ctx, 1, 10, string(domain.CategoryGaming))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rooms, 1)
	assert.Equal(t, "gamers", rooms[0].Name)
}

func TestMessageRepositoryAppendAndListSince(t *testing.T) {
	db := testDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()
	seedRoom(t, db, "r1")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for seq := int64(1); seq <= 5; seq++ {
		require.NoError(t, repo.Append(ctx, &domain.ChatMessage{
			ID:         "m" + string(rune('0'+seq)),
			RoomID:     "r1",
			Seq:        seq,
			SenderID:   "u1",
			SenderName: "alice",
			Body:       "hello",
			Kind:       domain.KindText,
			Reactions:  domain.ReactionSet{},
			CreatedAt:  base.Add(time.Duration(seq) * time.Second),
		}))
	}

	msgs, err := repo.ListSince(ctx, "r1", 2, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(3), msgs[0].Seq)
	assert.Equal(t, int64(5), msgs[2].Seq)

	limited, err := repo.ListSince(ctx, "r1", 0, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, int64(1), limited[0].Seq)

	maxSeq, err := repo.MaxSeq(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), maxSeq)

	maxSeq, err = repo.MaxSeq(ctx, "empty-room")
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxSeq)
}

func TestMessageRepositoryUpdateReactions(t *testing.T) {
	db := testDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()
	seedRoom(t, db, "r1")

	msg := &domain.ChatMessage{
		ID:         "m1",
		RoomID:     "r1",
		Seq:        1,
		SenderID:   "u1",
		SenderName: "alice",
		Body:       "hi",
		Kind:       domain.KindText,
		Reactions:  domain.ReactionSet{},
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Append(ctx, msg))

	reactions := domain.ReactionSet{"🔥": {"u2"}}
	require.NoError(t, repo.UpdateReactions(ctx, "m1", reactions))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, reactions, got.Reactions)

	err = repo.UpdateReactions(ctx, "missing", reactions)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMembershipRepositoryUpsertKeepsFirstJoin(t *testing.T) {
	db := testDB(t)
	repo := NewGormMembershipRepository(db)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := repo.Upsert(ctx, &domain.Membership{
		RoomID: "r1", UserID: "u1", Role: domain.RoleMember, JoinedAt: first,
	})
	require.NoError(t, err)
	assert.True(t, m.JoinedAt.Equal(first))

	// A later join keeps the original record.
	m, err = repo.Upsert(ctx, &domain.Membership{
		RoomID: "r1", UserID: "u1", Role: domain.RoleMember, JoinedAt: first.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, m.JoinedAt.Equal(first))

	members, err := repo.ListByRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestMembershipRepositoryListOrderedByJoin(t *testing.T) {
	db := testDB(t)
	repo := NewGormMembershipRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.Upsert(ctx, &domain.Membership{RoomID: "r1", UserID: "late", JoinedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &domain.Membership{RoomID: "r1", UserID: "early", JoinedAt: base})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &domain.Membership{RoomID: "r1", UserID: "also-late", JoinedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	members, err := repo.ListByRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "early", members[0].UserID)
	// Same joined_at ties break on user id.
	assert.Equal(t, "also-late", members[1].UserID)
	assert.Equal(t, "late", members[2].UserID)
}

func TestMembershipRepositoryDeleteAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewGormMembershipRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "r1", "u1")
	assert.ErrorIs(t, err, ErrMembershipNotFound)

	// Deleting an absent membership is a no-op.
	require.NoError(t, repo.Delete(ctx, "r1", "u1"))

	_, err = repo.Upsert(ctx, &domain.Membership{RoomID: "r1", UserID: "u1", Role: domain.RoleMember})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "r1", "u1"))
	_, err = repo.Get(ctx, "r1", "u1")
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}
