// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Servers that don't support collMod/validators (some DocumentDB
// versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, c := range []struct {
		name   string
		schema bson.M
	}{
		{"users", usersSchema()},
		{"rate_limits", nil},
		{"audit_logs", auditLogsSchema()},
	} {
		if _, err := ensureCollection(ctx, db, c.name); err != nil {
			problems = append(problems, c.name+": "+err.Error())
			continue
		}
		if c.schema == nil {
			continue
		}
		if err := setValidator(ctx, db, c.name, c.schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
				continue
			}
			problems = append(problems, c.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if this call created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	if exists, listErr := collectionExists(ctx, db, name); listErr == nil && exists {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		// Lost a race with another instance, or listing failed above.
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandErrMatches(err error, code int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErrMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErrMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErrMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func assetSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"url"},
		"properties": bson.M{
			"public_id": bson.M{"bsonType": "string"},
			"url":       bson.M{"bsonType": "string", "minLength": 1},
		},
	}
}

// usersSchema rejects documents without a password hash, so a plaintext-only
// or hash-less user can never be written.
func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"username", "email", "full_name", "password_hash", "avatar"},
			"properties": bson.M{
				"username":      bson.M{"bsonType": "string", "pattern": "^[a-z0-9]+(_?[a-z0-9])*$"},
				"email":         bson.M{"bsonType": "string", "pattern": "^[^\\s@]+@[^\\s@]+\\.[^\\s@]+$"},
				"full_name":     bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci":  bson.M{"bsonType": "string"},
				"password_hash": bson.M{"bsonType": "string", "minLength": 1},
				"refresh_token": bson.M{"bsonType": "string"},
				"avatar":        assetSchema(),
				"cover_image":   assetSchema(),
				"watch_history": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			},
		},
	}
}

func auditLogsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"created_at", "category", "event_type"},
			"properties": bson.M{
				"created_at": bson.M{"bsonType": "date"},
				"category":   bson.M{"bsonType": "string"},
				"event_type": bson.M{"bsonType": "string"},
				"success":    bson.M{"bsonType": "bool"},
			},
		},
	}
}
