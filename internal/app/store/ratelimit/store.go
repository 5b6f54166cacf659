// internal/app/store/ratelimit/store.go
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/playtweet/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Policy configures how many failed logins an identifier may make within a
// window before it is locked out.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// Validate rejects a policy that could never allow or never lock.
func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return errors.New("rate limit attempts must be at least 1")
	case p.Window <= 0:
		return errors.New("rate limit window must be positive")
	case p.Lockout <= 0:
		return errors.New("rate limit lockout must be positive")
	}
	return nil
}

// Attempt tracks failed login attempts for a specific login identifier.
type Attempt struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	LoginID      string             `bson:"login_id"`      // normalized username or email
	AttemptCount int                `bson:"attempt_count"` // failures in the current window
	WindowStart  time.Time          `bson:"window_start"`
	LockedUntil  *time.Time         `bson:"locked_until"` // nil if not locked
	LastAttempt  time.Time          `bson:"last_attempt"` // TTL cleanup
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// Store is the MongoDB-backed login limiter. Lookups fail open: a database
// error never blocks a login.
type Store struct {
	c      *mongo.Collection
	policy Policy
	now    func() time.Time
}

// New creates a MongoDB rate limit Store.
func New(db *mongo.Database, policy Policy) *Store {
	return &Store{
		c:      db.Collection("rate_limits"),
		policy: policy,
		now:    time.Now,
	}
}

// CheckAllowed reports whether loginID may attempt a login.
// Returns:
//   - allowed: true if the attempt should be processed
//   - remaining: attempts left before lockout (-1 if locked)
//   - lockedUntil: when the lockout expires (nil if not locked)
func (s *Store) CheckAllowed(ctx context.Context, loginID string) (allowed bool, remaining int, lockedUntil *time.Time) {
	loginID = normalize.LoginIdentifier(loginID)
	now := s.now()

	var attempt Attempt
	if err := s.c.FindOne(ctx, bson.M{"login_id": loginID}).Decode(&attempt); err != nil {
		return true, s.policy.MaxAttempts, nil
	}

	if attempt.LockedUntil != nil && now.Before(*attempt.LockedUntil) {
		return false, -1, attempt.LockedUntil
	}
	if now.After(attempt.WindowStart.Add(s.policy.Window)) {
		return true, s.policy.MaxAttempts, nil
	}

	remaining = s.policy.MaxAttempts - attempt.AttemptCount
	if remaining <= 0 {
		// Lockout already elapsed but the window has not.
		return true, s.policy.MaxAttempts, nil
	}
	return true, remaining, nil
}

// RecordFailure counts a failed login for loginID.
// Returns:
//   - lockedOut: true if this failure triggered a lockout
//   - lockedUntil: when the lockout expires (nil if not locked)
func (s *Store) RecordFailure(ctx context.Context, loginID string) (lockedOut bool, lockedUntil *time.Time) {
	loginID = normalize.LoginIdentifier(loginID)
	now := s.now()

	var attempt Attempt
	err := s.c.FindOne(ctx, bson.M{"login_id": loginID}).Decode(&attempt)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		attempt = Attempt{LoginID: loginID, WindowStart: now, CreatedAt: now}
	case err != nil:
		return false, nil
	}

	expired := now.After(attempt.WindowStart.Add(s.policy.Window))
	lockElapsed := attempt.LockedUntil != nil && !now.Before(*attempt.LockedUntil)
	if expired || lockElapsed {
		attempt.AttemptCount = 0
		attempt.WindowStart = now
		attempt.LockedUntil = nil
	}
	attempt.AttemptCount++
	attempt.LastAttempt = now
	attempt.UpdatedAt = now

	if attempt.AttemptCount >= s.policy.MaxAttempts {
		until := now.Add(s.policy.Lockout)
		attempt.LockedUntil = &until
		lockedOut, lockedUntil = true, &until
	}

	_, _ = s.c.UpdateOne(ctx,
		bson.M{"login_id": loginID},
		bson.M{
			"$set": bson.M{
				"attempt_count": attempt.AttemptCount,
				"window_start":  attempt.WindowStart,
				"locked_until":  attempt.LockedUntil,
				"last_attempt":  attempt.LastAttempt,
				"updated_at":    attempt.UpdatedAt,
			},
			"$setOnInsert": bson.M{"created_at": attempt.CreatedAt},
		},
		options.Update().SetUpsert(true),
	)

	return lockedOut, lockedUntil
}

// ClearOnSuccess removes the record for loginID after a successful login.
func (s *Store) ClearOnSuccess(ctx context.Context, loginID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"login_id": normalize.LoginIdentifier(loginID)})
	return err
}

// GetAttempt returns the current attempt record for loginID, or nil.
func (s *Store) GetAttempt(ctx context.Context, loginID string) (*Attempt, error) {
	var attempt Attempt
	err := s.c.FindOne(ctx, bson.M{"login_id": normalize.LoginIdentifier(loginID)}).Decode(&attempt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
