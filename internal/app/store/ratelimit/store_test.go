package ratelimit

import (
	"testing"
	"time"

	"github.com/dalemusser/playtweet/internal/testutil"
)

var testPolicy = Policy{MaxAttempts: 3, Window: 15 * time.Minute, Lockout: 30 * time.Minute}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"valid", testPolicy, false},
		{"zero attempts", Policy{MaxAttempts: 0, Window: time.Minute, Lockout: time.Minute}, true},
		{"zero window", Policy{MaxAttempts: 1, Lockout: time.Minute}, true},
		{"zero lockout", Policy{MaxAttempts: 1, Window: time.Minute}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.policy.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_CheckAllowed_NoRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, testPolicy)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	allowed, remaining, lockedUntil := store.CheckAllowed(ctx, "jane")
	if !allowed {
		t.Error("CheckAllowed() should allow an unknown identifier")
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}
	if lockedUntil != nil {
		t.Error("lockedUntil should be nil")
	}
}

func TestStore_RecordFailure_CountsAndLocks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, testPolicy)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 1; i < testPolicy.MaxAttempts; i++ {
		if locked, _ := store.RecordFailure(ctx, "Jane"); locked {
			t.Fatalf("RecordFailure() locked after %d failures", i)
		}
		_, remaining, _ := store.CheckAllowed(ctx, "jane")
		if want := testPolicy.MaxAttempts - i; remaining != want {
			t.Errorf("after %d failures remaining = %d, want %d", i, remaining, want)
		}
	}

	locked, until := store.RecordFailure(ctx, "JANE")
	if !locked || until == nil {
		t.Fatal("RecordFailure() should lock at the limit")
	}

	allowed, remaining, lockedUntil := store.CheckAllowed(ctx, "jane")
	if allowed || remaining != -1 || lockedUntil == nil {
		t.Errorf("CheckAllowed() = (%v, %d, %v), want locked", allowed, remaining, lockedUntil)
	}
}

func TestStore_LockoutExpires(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, testPolicy)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now()
	store.now = func() time.Time { return base }
	for i := 0; i < testPolicy.MaxAttempts; i++ {
		store.RecordFailure(ctx, "jane")
	}
	if allowed, _, _ := store.CheckAllowed(ctx, "jane"); allowed {
		t.Fatal("expected lockout")
	}

	store.now = func() time.Time { return base.Add(testPolicy.Lockout + time.Second) }
	allowed, remaining, _ := store.CheckAllowed(ctx, "jane")
	if !allowed || remaining != testPolicy.MaxAttempts {
		t.Errorf("after lockout CheckAllowed() = (%v, %d), want (true, %d)", allowed, remaining, testPolicy.MaxAttempts)
	}

	if locked, _ := store.RecordFailure(ctx, "jane"); locked {
		t.Error("first failure after lockout should start a fresh window")
	}
}

func TestStore_WindowExpiry_ResetsCounter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, testPolicy)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now()
	store.now = func() time.Time { return base }
	store.RecordFailure(ctx, "jane")
	store.RecordFailure(ctx, "jane")

	store.now = func() time.Time { return base.Add(testPolicy.Window + time.Second) }
	if locked, _ := store.RecordFailure(ctx, "jane"); locked {
		t.Error("failure in a new window should not lock")
	}
	a, err := store.GetAttempt(ctx, "jane")
	if err != nil || a == nil {
		t.Fatalf("GetAttempt() = %v, %v", a, err)
	}
	if a.AttemptCount != 1 {
		t.Errorf("AttemptCount = %d, want 1", a.AttemptCount)
	}
}

func TestStore_ClearOnSuccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, testPolicy)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store.RecordFailure(ctx, "jane@x.com")
	if err := store.ClearOnSuccess(ctx, " Jane@X.com "); err != nil {
		t.Fatalf("ClearOnSuccess() error = %v", err)
	}
	a, err := store.GetAttempt(ctx, "jane@x.com")
	if err != nil {
		t.Fatalf("GetAttempt() error = %v", err)
	}
	if a != nil {
		t.Errorf("GetAttempt() = %+v, want nil after clear", a)
	}
}
