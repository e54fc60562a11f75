package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"campushub.org/internal/auth"
)

var _ auth.Store = (*AuthStore)(nil)

// AuthStore implements auth.Store on MongoDB.
type AuthStore struct {
	accounts *mongo.Collection
	profiles *mongo.Collection
}

func NewAuthStore(db *mongo.Database) *AuthStore {
	return &AuthStore{
		accounts: db.Collection("accounts"),
		profiles: db.Collection("profiles"),
	}
}

// EnsureIndexes creates the unique email index sign-up relies on.
func (s *AuthStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *AuthStore) Accounts(context.Context) auth.AccountStore { return &accountStore{c: s.accounts} }
func (s *AuthStore) Profiles(context.Context) auth.ProfileStore { return &profileStore{c: s.profiles} }

type accountDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type accountStore struct{ c *mongo.Collection }

func (s *accountStore) Create(ctx context.Context, a *auth.Account) error {
	_, err := s.c.InsertOne(ctx, accountDoc{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return auth.ErrEmailTaken
	}
	return err
}

func (s *accountStore) Find(ctx context.Context, id string) (*auth.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *accountStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *accountStore) findOne(ctx context.Context, filter bson.M) (*auth.Account, error) {
	var doc accountDoc
	err := s.c.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auth.Account{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

type profileDoc struct {
	ID                     string    `bson:"_id"`
	Email                  string    `bson:"email"`
	Role                   string    `bson:"role"`
	OrganizerRequestStatus string    `bson:"organizerRequestStatus"`
	FirstName              string    `bson:"firstName"`
	LastName               string    `bson:"lastName"`
	CreatedAt              time.Time `bson:"createdAt"`
}

func (d profileDoc) toProfile() *auth.Profile {
	return &auth.Profile{
		ID:                     d.ID,
		Email:                  d.Email,
		Role:                   d.Role,
		OrganizerRequestStatus: d.OrganizerRequestStatus,
		FirstName:              d.FirstName,
		LastName:               d.LastName,
		CreatedAt:              d.CreatedAt,
	}
}

type profileStore struct{ c *mongo.Collection }

func (s *profileStore) Create(ctx context.Context, p *auth.Profile) error {
	_, err := s.c.InsertOne(ctx, profileDoc{
		ID:                     p.ID,
		Email:                  p.Email,
		Role:                   p.Role,
		OrganizerRequestStatus: p.OrganizerRequestStatus,
		FirstName:              p.FirstName,
		LastName:               p.LastName,
		CreatedAt:              p.CreatedAt,
	})
	return err
}

func (s *profileStore) Find(ctx context.Context, id string) (*auth.Profile, error) {
	var doc profileDoc
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toProfile(), nil
}

func (s *profileStore) SetRole(ctx context.Context, id, role, requestStatus string) (*auth.Profile, error) {
	update := bson.M{"$set": bson.M{"role": role, "organizerRequestStatus": requestStatus}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc profileDoc
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toProfile(), nil
}
