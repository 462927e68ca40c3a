package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiztd/cpbc-volunteer-app/internal/auth"
	"github.com/twiztd/cpbc-volunteer-app/internal/mailer"
	"github.com/twiztd/cpbc-volunteer-app/internal/model"
	"github.com/twiztd/cpbc-volunteer-app/internal/store"
	"github.com/twiztd/cpbc-volunteer-app/internal/testutil"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

func newAdminService(t *testing.T) (*AdminService, *sql.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	tokens := auth.NewTokenIssuer(testSecret, 8*time.Hour)
	svc := NewAdminService(db, tokens, mailer.New(mailer.Config{}), time.Hour)
	return svc, db
}

// seedSuper inserts an active super admin directly through the store.
func seedSuper(t *testing.T, db *sql.DB, email, password string) model.AdminUser {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	now := time.Now()
	admin, err := store.New(db).CreateAdmin(context.Background(), store.CreateAdminParams{
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		IsSuperAdmin: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return admin
}

func TestLogin(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	t.Run("valid credentials", func(t *testing.T) {
		token, admin, err := svc.Login(ctx, "admin@cpbc.org", "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "admin@cpbc.org", admin.Email)
		assert.True(t, admin.IsSuperAdmin)
	})

	t.Run("case-insensitive email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "Admin@CPBC.org", "correct-horse")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "admin@cpbc.org", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@cpbc.org", "correct-horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	super := seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	created, err := svc.CreateAdmin(ctx, CreateAdminInput{
		Email: "helper@cpbc.org", Password: "helper-pass", Name: "Helper",
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateAdmin(ctx, super, created.ID, UpdateAdminInput{Active: &inactive})
	require.NoError(t, err)

	// Correct credentials on a deactivated account look identical to a wrong
	// password.
	_, _, err = svc.Login(ctx, "helper@cpbc.org", "helper-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateAdmin(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	t.Run("success lower-cases email", func(t *testing.T) {
		admin, err := svc.CreateAdmin(ctx, CreateAdminInput{
			Email: "New.Admin@CPBC.org", Password: "secret1", Name: "New Admin",
		})
		require.NoError(t, err)
		assert.Equal(t, "new.admin@cpbc.org", admin.Email)
		assert.True(t, admin.IsActive)
		assert.False(t, admin.IsSuperAdmin)
	})

	t.Run("duplicate email differing only in case", func(t *testing.T) {
		_, err := svc.CreateAdmin(ctx, CreateAdminInput{
			Email: "NEW.ADMIN@cpbc.org", Password: "secret2", Name: "Dup",
		})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.CreateAdmin(ctx, CreateAdminInput{
			Email: "short@cpbc.org", Password: "12345", Name: "Short",
		})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})
}

func TestUpdateAdmin(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	super := seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	regular, err := svc.CreateAdmin(ctx, CreateAdminInput{
		Email: "helper@cpbc.org", Password: "helper-pass", Name: "Helper",
	})
	require.NoError(t, err)

	inactive := false

	t.Run("self-deactivation rejected even for super admin", func(t *testing.T) {
		_, err := svc.UpdateAdmin(ctx, super, super.ID, UpdateAdminInput{Active: &inactive})
		assert.ErrorIs(t, err, ErrSelfDeactivation)
	})

	t.Run("super admin cannot be deactivated by others", func(t *testing.T) {
		_, err := svc.UpdateAdmin(ctx, regular, super.ID, UpdateAdminInput{Active: &inactive})
		assert.ErrorIs(t, err, ErrSuperAdminDeactivation)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := svc.UpdateAdmin(ctx, super, 9999, UpdateAdminInput{Active: &inactive})
		assert.ErrorIs(t, err, ErrAdminNotFound)
	})

	t.Run("name change leaves active flag alone", func(t *testing.T) {
		name := "Renamed Helper"
		updated, err := svc.UpdateAdmin(ctx, super, regular.ID, UpdateAdminInput{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Renamed Helper", updated.Name)
		assert.True(t, updated.IsActive)
	})

	t.Run("deactivate regular account", func(t *testing.T) {
		updated, err := svc.UpdateAdmin(ctx, super, regular.ID, UpdateAdminInput{Active: &inactive})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
	})

	t.Run("reactivate", func(t *testing.T) {
		active := true
		updated, err := svc.UpdateAdmin(ctx, super, regular.ID, UpdateAdminInput{Active: &active})
		require.NoError(t, err)
		assert.True(t, updated.IsActive)
	})
}

func TestTransferSuperAdmin(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	q := store.New(db)
	super := seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	regular, err := svc.CreateAdmin(ctx, CreateAdminInput{
		Email: "helper@cpbc.org", Password: "helper-pass", Name: "Helper",
	})
	require.NoError(t, err)

	t.Run("caller without the role", func(t *testing.T) {
		err := svc.TransferSuperAdmin(ctx, regular, super.ID)
		assert.ErrorIs(t, err, ErrNotSuperAdmin)
	})

	t.Run("self-transfer", func(t *testing.T) {
		err := svc.TransferSuperAdmin(ctx, super, super.ID)
		assert.ErrorIs(t, err, ErrSelfTransfer)
	})

	t.Run("unknown target", func(t *testing.T) {
		err := svc.TransferSuperAdmin(ctx, super, 9999)
		assert.ErrorIs(t, err, ErrAdminNotFound)
	})

	t.Run("inactive target", func(t *testing.T) {
		dormant, err := svc.CreateAdmin(ctx, CreateAdminInput{
			Email: "dormant@cpbc.org", Password: "dormant-pass", Name: "Dormant",
		})
		require.NoError(t, err)
		inactive := false
		_, err = svc.UpdateAdmin(ctx, super, dormant.ID, UpdateAdminInput{Active: &inactive})
		require.NoError(t, err)

		err = svc.TransferSuperAdmin(ctx, super, dormant.ID)
		assert.ErrorIs(t, err, ErrTargetInactive)
	})

	t.Run("success swaps the role atomically", func(t *testing.T) {
		require.NoError(t, svc.TransferSuperAdmin(ctx, super, regular.ID))

		oldHolder, err := q.GetAdminByID(ctx, super.ID)
		require.NoError(t, err)
		newHolder, err := q.GetAdminByID(ctx, regular.ID)
		require.NoError(t, err)
		assert.False(t, oldHolder.IsSuperAdmin)
		assert.True(t, newHolder.IsSuperAdmin)

		count, err := q.CountActiveSuperAdmins(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("stale caller snapshot is re-checked in the transaction", func(t *testing.T) {
		// super still carries IsSuperAdmin=true in memory but the role moved.
		err := svc.TransferSuperAdmin(ctx, super, regular.ID)
		assert.ErrorIs(t, err, ErrNotSuperAdmin)
	})
}

func TestRequestPasswordReset(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	q := store.New(db)
	super := seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@cpbc.org"))
	})

	t.Run("known email stores a paired token and expiry", func(t *testing.T) {
		require.NoError(t, svc.RequestPasswordReset(ctx, "admin@cpbc.org"))

		admin, err := q.GetAdminByID(ctx, super.ID)
		require.NoError(t, err)
		require.True(t, admin.ResetToken.Valid)
		require.True(t, admin.ResetExpiresAt.Valid)
		assert.Len(t, admin.ResetToken.String, 64) // 32 random bytes, hex-encoded
		assert.WithinDuration(t, time.Now().Add(time.Hour), admin.ResetExpiresAt.Time, 5*time.Second)
	})

	t.Run("repeat request supersedes the prior token", func(t *testing.T) {
		first, err := q.GetAdminByID(ctx, super.ID)
		require.NoError(t, err)

		require.NoError(t, svc.RequestPasswordReset(ctx, "admin@cpbc.org"))

		second, err := q.GetAdminByID(ctx, super.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first.ResetToken.String, second.ResetToken.String)

		err = svc.CompletePasswordReset(ctx, first.ResetToken.String, "new-password", "new-password")
		assert.ErrorIs(t, err, ErrResetTokenInvalid)
	})

	t.Run("inactive account succeeds silently without a token", func(t *testing.T) {
		regular, err := svc.CreateAdmin(ctx, CreateAdminInput{
			Email: "gone@cpbc.org", Password: "gone-pass", Name: "Gone",
		})
		require.NoError(t, err)
		inactive := false
		_, err = svc.UpdateAdmin(ctx, super, regular.ID, UpdateAdminInput{Active: &inactive})
		require.NoError(t, err)

		require.NoError(t, svc.RequestPasswordReset(ctx, "gone@cpbc.org"))

		admin, err := q.GetAdminByID(ctx, regular.ID)
		require.NoError(t, err)
		assert.False(t, admin.ResetToken.Valid)
	})
}

func TestCompletePasswordReset(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	q := store.New(db)
	super := seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	pendingToken := func(t *testing.T) string {
		t.Helper()
		require.NoError(t, svc.RequestPasswordReset(ctx, "admin@cpbc.org"))
		admin, err := q.GetAdminByID(ctx, super.ID)
		require.NoError(t, err)
		require.True(t, admin.ResetToken.Valid)
		return admin.ResetToken.String
	}

	t.Run("password mismatch", func(t *testing.T) {
		err := svc.CompletePasswordReset(ctx, pendingToken(t), "new-password", "different")
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("password too short", func(t *testing.T) {
		err := svc.CompletePasswordReset(ctx, pendingToken(t), "12345", "12345")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("unknown token", func(t *testing.T) {
		err := svc.CompletePasswordReset(ctx, "not-a-real-token", "new-password", "new-password")
		assert.ErrorIs(t, err, ErrResetTokenInvalid)
	})

	t.Run("success sets password and consumes token", func(t *testing.T) {
		token := pendingToken(t)
		require.NoError(t, svc.CompletePasswordReset(ctx, token, "new-password", "new-password"))

		_, _, err := svc.Login(ctx, "admin@cpbc.org", "new-password")
		require.NoError(t, err)
		_, _, err = svc.Login(ctx, "admin@cpbc.org", "correct-horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		// Single-use: a second attempt with the same token fails.
		err = svc.CompletePasswordReset(ctx, token, "another-password", "another-password")
		assert.ErrorIs(t, err, ErrResetTokenInvalid)
	})
}

func TestCompletePasswordReset_Expiry(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	q := store.New(db)
	super := seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	base := time.Now()
	svc.SetClock(func() time.Time { return base })

	require.NoError(t, svc.RequestPasswordReset(ctx, "admin@cpbc.org"))
	admin, err := q.GetAdminByID(ctx, super.ID)
	require.NoError(t, err)
	token := admin.ResetToken.String

	// Jump past the one-hour window.
	svc.SetClock(func() time.Time { return base.Add(61 * time.Minute) })

	err = svc.CompletePasswordReset(ctx, token, "new-password", "new-password")
	assert.ErrorIs(t, err, ErrResetTokenExpired)

	// Expiry detection clears the reset state rather than leaving it dangling.
	admin, err = q.GetAdminByID(ctx, super.ID)
	require.NoError(t, err)
	assert.False(t, admin.ResetToken.Valid)
	assert.False(t, admin.ResetExpiresAt.Valid)

	// A fresh request starts a new pending reset that completes normally.
	require.NoError(t, svc.RequestPasswordReset(ctx, "admin@cpbc.org"))
	admin, err = q.GetAdminByID(ctx, super.ID)
	require.NoError(t, err)
	require.NoError(t, svc.CompletePasswordReset(ctx, admin.ResetToken.String, "new-password", "new-password"))
}

func TestResolveByEmail(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	super := seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	t.Run("active account resolves", func(t *testing.T) {
		admin, err := svc.ResolveByEmail(ctx, "Admin@CPBC.org")
		require.NoError(t, err)
		assert.Equal(t, super.ID, admin.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.ResolveByEmail(ctx, "nobody@cpbc.org")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("inactive account looks unknown", func(t *testing.T) {
		regular, err := svc.CreateAdmin(ctx, CreateAdminInput{
			Email: "helper@cpbc.org", Password: "helper-pass", Name: "Helper",
		})
		require.NoError(t, err)
		inactive := false
		_, err = svc.UpdateAdmin(ctx, super, regular.ID, UpdateAdminInput{Active: &inactive})
		require.NoError(t, err)

		_, err = svc.ResolveByEmail(ctx, "helper@cpbc.org")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestCompletePasswordReset_ConcurrentUse(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	q := store.New(db)
	seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	require.NoError(t, svc.RequestPasswordReset(ctx, "admin@cpbc.org"))
	admin, err := q.GetAdminByEmail(ctx, "admin@cpbc.org")
	require.NoError(t, err)
	token := admin.ResetToken.String

	// Two completions race on the same token; the conditional consume must
	// let exactly one through.
	errs := make(chan error, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, password := range []string{"first-password", "second-password"} {
		wg.Add(1)
		go func(password string) {
			defer wg.Done()
			<-start
			errs <- svc.CompletePasswordReset(ctx, token, password, password)
		}(password)
	}
	close(start)
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrResetTokenInvalid):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "token must be consumed exactly once")
	assert.Equal(t, 1, rejected)

	// Exactly one of the racing passwords is the account's password now.
	var valid int
	for _, password := range []string{"first-password", "second-password"} {
		if _, _, err := svc.Login(ctx, "admin@cpbc.org", password); err == nil {
			valid++
		}
	}
	assert.Equal(t, 1, valid)
}

func TestUpdateAdmin_GuardsSeeFreshRole(t *testing.T) {
	svc, db := newAdminService(t)
	ctx := context.Background()
	q := store.New(db)
	super := seedSuper(t, db, "admin@cpbc.org", "correct-horse")

	regular, err := svc.CreateAdmin(ctx, CreateAdminInput{
		Email: "deputy@cpbc.org", Password: "deputy-pass", Name: "Deputy",
	})
	require.NoError(t, err)

	// The caller last saw the target as a regular admin; the role moves
	// before the deactivation attempt.
	require.NoError(t, svc.TransferSuperAdmin(ctx, super, regular.ID))

	inactive := false
	_, err = svc.UpdateAdmin(ctx, super, regular.ID, UpdateAdminInput{Active: &inactive})
	assert.ErrorIs(t, err, ErrSuperAdminDeactivation)

	current, err := q.GetAdminByID(ctx, regular.ID)
	require.NoError(t, err)
	assert.True(t, current.IsActive)
	assert.True(t, current.IsSuperAdmin)
}
