package yoga

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-yoga/auth"

	_ "github.com/mattn/go-sqlite3"
)

func TestMain(m *testing.M) {
	auth.PasswordHashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, Migrate(context.Background(), db, auth.NopLogger{}))

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func setupRepo(t *testing.T) RepositoryManager {
	t.Helper()
	repo := NewRepositoryManager(setupDB(t))
	repo.MustValidate()
	return repo
}

func createUser(t *testing.T, repo RepositoryManager, email, password string) *User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Create(context.Background(), &User{
		Email:     email,
		FirstName: "Yogi",
		LastName:  "Bear",
		Password:  hash,
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	return user
}

func createSession(t *testing.T, repo RepositoryManager, name string) *Session {
	t.Helper()

	ctx := context.Background()
	var out *Session

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = repo.Sessions().CreateTx(ctx, tx, &Session{
			Name:        name,
			Date:        time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC),
			Description: "Morning flow",
			TeacherID:   1,
		})
		return err
	})
	require.NoError(t, err)
	require.NotZero(t, out.ID)

	return out
}
