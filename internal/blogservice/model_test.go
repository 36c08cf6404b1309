package blogservice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sushihentaime/bloglist/internal/common"
)

// testStore exercises a Store whose backing users collection already holds
// ownerID with username "alice" and name "Alice".
func testStore(t *testing.T, m Store, ownerID string, newID func() string) {
	ctx := context.Background()

	first := &Blog{Title: "first", Author: "Ann", URL: "https://a.example", Likes: 3, User: &Owner{ID: ownerID}}
	require.NoError(t, m.Insert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &Blog{Title: "second", URL: "https://b.example", User: &Owner{ID: ownerID}}
	require.NoError(t, m.Insert(ctx, second))

	blogs, err := m.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, blogs, 2)
	assert.Equal(t, first.ID, blogs[0].ID)
	assert.Equal(t, second.ID, blogs[1].ID)
	assert.Equal(t, "alice", blogs[0].User.Username)
	assert.Equal(t, "Alice", blogs[0].User.Name)
	assert.Equal(t, 0, blogs[1].Likes)

	got, err := m.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, "Ann", got.Author)
	assert.Equal(t, ownerID, got.OwnerID())

	_, err = m.Get(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrInvalidID)

	_, err = m.Get(ctx, newID())
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	got.Likes = 10
	got.Title = "renamed"
	require.NoError(t, m.Update(ctx, got))

	got, err = m.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 10, got.Likes)
	assert.Equal(t, ownerID, got.OwnerID())

	assert.ErrorIs(t, m.Update(ctx, &Blog{ID: newID(), Title: "t", URL: "u"}), common.ErrRecordNotFound)

	require.NoError(t, m.Delete(ctx, first.ID))
	assert.ErrorIs(t, m.Delete(ctx, first.ID), common.ErrRecordNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "nope"), common.ErrInvalidID)

	blogs, err = m.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	assert.Equal(t, second.ID, blogs[0].ID)
}

func TestPostgresModel(t *testing.T) {
	db := common.TestDB(t)

	var ownerID string
	err := db.QueryRow(`
		INSERT INTO users (username, name, password)
		VALUES ('alice', 'Alice', '\x00')
		RETURNING id`).Scan(&ownerID)
	require.NoError(t, err)

	m := NewPostgresModel(db)
	testStore(t, m, ownerID, uuid.NewString)

	err = m.Insert(context.Background(), &Blog{Title: "t", URL: "u", User: &Owner{ID: uuid.NewString()}})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// storage constraints back up validation
	_, err = db.Exec(`INSERT INTO blogs (title, url, likes, user_id) VALUES ('t', 'u', -1, $1)`, ownerID)
	assert.Error(t, err)
	_, err = db.Exec(`INSERT INTO blogs (title, url, user_id) VALUES ('', 'u', $1)`, ownerID)
	assert.Error(t, err)
}

func TestMongoModel(t *testing.T) {
	db := common.TestMongo(t)
	ctx := context.Background()

	res, err := db.Collection(common.UsersCollection).InsertOne(ctx, bson.M{
		"username":   "alice",
		"name":       "Alice",
		"blogs":      bson.A{},
		"created_at": time.Now().UTC(),
	})
	require.NoError(t, err)
	ownerID := res.InsertedID.(primitive.ObjectID).Hex()

	testStore(t, NewMongoModel(db), ownerID, func() string { return primitive.NewObjectID().Hex() })
}
