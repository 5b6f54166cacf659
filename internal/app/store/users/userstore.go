// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username: The unique, lowercase handle a user logs in with (alternatively, email)

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/playtweet/internal/app/system/normalize"
	"github.com/dalemusser/playtweet/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a write collides with an existing username or email.
	ErrDuplicate = errors.New("a user with this username or email already exists")
	// ErrTokenMismatch is returned by RotateRefreshToken when the stored
	// refresh token is not the one presented.
	ErrTokenMismatch = errors.New("refresh token does not match stored token")
)

// sanitized excludes secrets from reads that feed API responses.
var sanitized = bson.M{"password_hash": 0, "refresh_token": 0}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// Create inserts a new user after normalizing fields.
// The caller must set PasswordHash; plaintext passwords never reach the store.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.Email = normalize.Email(u.Email)
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	if u.WatchHistory == nil {
		u.WatchHistory = []primitive.ObjectID{}
	}
	u.RefreshToken = ""

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads the full user document, including the password hash and
// refresh token.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetSanitizedByID loads a user without password_hash and refresh_token.
func (s *Store) GetSanitizedByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	opts := options.FindOne().SetProjection(sanitized)
	if err := s.c.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByLogin finds a user by username or email. Empty values are ignored;
// if both are empty ErrNotFound is returned.
func (s *Store) GetByLogin(ctx context.Context, username, email string) (*models.User, error) {
	filter := loginFilter(username, email)
	if filter == nil {
		return nil, ErrNotFound
	}
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ExistsByUsernameOrEmail reports whether either value is already taken.
func (s *Store) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	filter := loginFilter(username, email)
	if filter == nil {
		return false, nil
	}
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// EmailExistsForOther checks if an email belongs to a user other than excludeID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

func loginFilter(username, email string) bson.M {
	var or bson.A
	if u := normalize.Username(username); u != "" {
		or = append(or, bson.M{"username": u})
	}
	if e := normalize.Email(email); e != "" {
		or = append(or, bson.M{"email": e})
	}
	if len(or) == 0 {
		return nil
	}
	return bson.M{"$or": or}
}

// SetRefreshToken overwrites the stored refresh token. Any previously issued
// refresh token stops working. Concurrent callers race; the last write wins.
func (s *Store) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"refresh_token": token,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshToken replaces presented with next in a single conditional
// update. It returns ErrTokenMismatch when the stored token is absent or is
// not presented, which includes losing a race with a concurrent rotation.
func (s *Store) RotateRefreshToken(ctx context.Context, id primitive.ObjectID, presented, next string) error {
	if presented == "" {
		return ErrTokenMismatch
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "refresh_token": presented},
		bson.M{"$set": bson.M{
			"refresh_token": next,
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTokenMismatch
	}
	return nil
}

// ClearRefreshToken removes the stored refresh token. Clearing an already
// cleared token is not an error.
func (s *Store) ClearRefreshToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"refresh_token": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// UpdatePassword sets only the password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccount changes the full name and email and returns the sanitized
// updated user.
func (s *Store) UpdateAccount(ctx context.Context, id primitive.ObjectID, fullName, email string) (*models.User, error) {
	name := normalize.Name(fullName)
	return s.updateSanitized(ctx, id, bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"email":        normalize.Email(email),
	})
}

// SetAvatar replaces the avatar and returns the sanitized updated user.
func (s *Store) SetAvatar(ctx context.Context, id primitive.ObjectID, asset models.Asset) (*models.User, error) {
	return s.updateSanitized(ctx, id, bson.M{"avatar": asset})
}

// SetCoverImage replaces the cover image and returns the sanitized updated user.
func (s *Store) SetCoverImage(ctx context.Context, id primitive.ObjectID, asset models.Asset) (*models.User, error) {
	return s.updateSanitized(ctx, id, bson.M{"cover_image": asset})
}

func (s *Store) updateSanitized(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(sanitized)

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicate
		}
		return nil, notFound(err)
	}
	return &u, nil
}
