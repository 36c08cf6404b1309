package blogservice

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sushihentaime/bloglist/internal/common"
)

// MongoModel keeps blogs in their own collection and resolves the owner with
// a $lookup into the users collection.
type MongoModel struct {
	col *mongo.Collection
}

func NewMongoModel(db *mongo.Database) *MongoModel {
	return &MongoModel{col: db.Collection(common.BlogsCollection)}
}

type blogDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Author    string             `bson:"author"`
	URL       string             `bson:"url"`
	Likes     int                `bson:"likes"`
	User      primitive.ObjectID `bson:"user"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
	Owner     *ownerDocument     `bson:"owner,omitempty"`
}

type ownerDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Username string             `bson:"username"`
	Name     string             `bson:"name"`
}

func (d *blogDocument) blog() *Blog {
	b := &Blog{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Author:    d.Author,
		URL:       d.URL,
		Likes:     d.Likes,
		User:      &Owner{ID: d.User.Hex()},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Owner != nil {
		b.User.Username = d.Owner.Username
		b.User.Name = d.Owner.Name
	}

	return b
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.ErrInvalidID
	}

	return oid, nil
}

func (m *MongoModel) Insert(ctx context.Context, b *Blog) error {
	owner, err := parseObjectID(b.OwnerID())
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := blogDocument{
		Title:     b.Title,
		Author:    b.Author,
		URL:       b.URL,
		Likes:     b.Likes,
		User:      owner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := m.col.InsertOne(ctx, doc)
	if err != nil {
		return err
	}

	b.ID = res.InsertedID.(primitive.ObjectID).Hex()
	b.CreatedAt = now
	b.UpdatedAt = now

	return nil
}

// populate builds the pipeline that attaches the owner's username and name.
func populate(match bson.D) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	return append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: common.UsersCollection},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{{Key: "username", Value: 1}, {Key: "name", Value: 1}}}},
			}},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$owner"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	)
}

func (m *MongoModel) find(ctx context.Context, match bson.D) ([]Blog, error) {
	cur, err := m.col.Aggregate(ctx, populate(match))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	blogs := []Blog{}
	for cur.Next(ctx) {
		var doc blogDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		blogs = append(blogs, *doc.blog())
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

func (m *MongoModel) GetAll(ctx context.Context) ([]Blog, error) {
	return m.find(ctx, nil)
}

func (m *MongoModel) Get(ctx context.Context, id string) (*Blog, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	blogs, err := m.find(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return nil, err
	}

	if len(blogs) == 0 {
		return nil, common.ErrRecordNotFound
	}

	return &blogs[0], nil
}

func (m *MongoModel) Update(ctx context.Context, b *Blog) error {
	oid, err := parseObjectID(b.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"title":      b.Title,
		"author":     b.Author,
		"url":        b.URL,
		"likes":      b.Likes,
		"updated_at": now,
	}}

	res, err := m.col.UpdateByID(ctx, oid, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return common.ErrRecordNotFound
	}
	b.UpdatedAt = now

	return nil
}

func (m *MongoModel) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	res, err := m.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}

	if res.DeletedCount == 0 {
		return common.ErrRecordNotFound
	}

	return nil
}
