package userservice

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sushihentaime/bloglist/internal/common"
)

// MongoModel stores users as documents; the blog index is an embedded array.
type MongoModel struct {
	col *mongo.Collection
}

func NewMongoModel(db *mongo.Database) *MongoModel {
	return &MongoModel{col: db.Collection(common.UsersCollection)}
}

type userDocument struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Username     string               `bson:"username"`
	Name         string               `bson:"name"`
	Email        string               `bson:"email,omitempty"`
	PasswordHash []byte               `bson:"password_hash"`
	Blogs        []primitive.ObjectID `bson:"blogs"`
	CreatedAt    time.Time            `bson:"created_at"`
}

func (d *userDocument) user() *User {
	u := &User{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Name:      d.Name,
		Email:     d.Email,
		Password:  Password{hash: d.PasswordHash},
		Blogs:     make([]string, 0, len(d.Blogs)),
		CreatedAt: d.CreatedAt,
	}
	for _, id := range d.Blogs {
		u.Blogs = append(u.Blogs, id.Hex())
	}

	return u
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.ErrInvalidID
	}

	return oid, nil
}

func (m *MongoModel) Insert(ctx context.Context, u *User) error {
	doc := userDocument{
		Username:     u.Username,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.Password.hash,
		Blogs:        []primitive.ObjectID{},
		CreatedAt:    time.Now().UTC(),
	}

	res, err := m.col.InsertOne(ctx, doc)
	if err != nil {
		switch {
		case mongo.IsDuplicateKeyError(err):
			return ErrDuplicateUsername
		default:
			return err
		}
	}

	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	u.CreatedAt = doc.CreatedAt
	if u.Blogs == nil {
		u.Blogs = []string{}
	}

	return nil
}

func (m *MongoModel) GetAll(ctx context.Context) ([]User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "username", Value: 1}})

	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []User{}
	for cur.Next(ctx) {
		var doc userDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, *doc.user())
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (m *MongoModel) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc userDocument
	if err := m.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return doc.user(), nil
}

func (m *MongoModel) GetByID(ctx context.Context, id string) (*User, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	return m.findOne(ctx, bson.M{"_id": oid})
}

func (m *MongoModel) GetByUsername(ctx context.Context, username string) (*User, error) {
	return m.findOne(ctx, bson.M{"username": username})
}

func (m *MongoModel) updateBlogs(ctx context.Context, userID string, update bson.M) error {
	oid, err := parseObjectID(userID)
	if err != nil {
		return err
	}

	res, err := m.col.UpdateByID(ctx, oid, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return common.ErrRecordNotFound
	}

	return nil
}

func (m *MongoModel) AddBlog(ctx context.Context, userID, blogID string) error {
	bid, err := parseObjectID(blogID)
	if err != nil {
		return err
	}

	return m.updateBlogs(ctx, userID, bson.M{"$addToSet": bson.M{"blogs": bid}})
}

// RemoveBlog is idempotent: removing an id that is not listed is not an error.
func (m *MongoModel) RemoveBlog(ctx context.Context, userID, blogID string) error {
	bid, err := parseObjectID(blogID)
	if err != nil {
		return err
	}

	return m.updateBlogs(ctx, userID, bson.M{"$pull": bson.M{"blogs": bid}})
}

func (m *MongoModel) ReplaceBlogs(ctx context.Context, userID string, blogIDs []string) error {
	ids := make([]primitive.ObjectID, 0, len(blogIDs))
	for _, id := range blogIDs {
		oid, err := parseObjectID(id)
		if err != nil {
			return err
		}
		ids = append(ids, oid)
	}

	return m.updateBlogs(ctx, userID, bson.M{"$set": bson.M{"blogs": ids}})
}
