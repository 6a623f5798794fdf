package yoga

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestTeachers_SeededByMigration(t *testing.T) {
	repo := setupRepo(t)

	teachers, err := repo.Teachers().List(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 2)

	assert.Equal(t, "Margot", teachers[0].FirstName)
	assert.Equal(t, "DELAHAYE", teachers[0].LastName)
	assert.Equal(t, "THIERCELIN", teachers[1].LastName)
	assert.False(t, teachers[0].CreatedAt.IsZero())
}

func TestTeachers_GetByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Teachers().Create(ctx, &Teacher{FirstName: "Ana", LastName: "Forrest"})
	require.NoError(t, err)

	found, err := repo.Teachers().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Forrest", found.LastName)

	_, err = repo.Teachers().GetByID(ctx, 999)
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
	assert.True(t, HasTextCode(err, TextCodeTeacherNotFound))
}

func TestUsers_CreateAndLookup(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "  Yoga@Studio.com ", "secret")
	assert.Equal(t, "yoga@studio.com", user.Email)
	assert.False(t, user.Admin)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := repo.Users().GetByEmail(ctx, "YOGA@studio.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	exists, err := repo.Users().ExistsByEmail(ctx, "yoga@studio.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Users().ExistsByEmail(ctx, "ghost@studio.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Users().GetByEmail(ctx, "ghost@studio.com")
	assert.True(t, HasTextCode(err, TextCodeUserNotFound))
}

func TestUsers_CreateDuplicateEmailIsConflict(t *testing.T) {
	repo := setupRepo(t)

	createUser(t, repo, "yoga@studio.com", "secret")

	_, err := repo.Users().Create(context.Background(), &User{
		Email:     "yoga@studio.com",
		FirstName: "Other",
		LastName:  "Person",
		Password:  "hash",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryConflict, richErr.Category)
}

func TestUsers_DeleteRemovesParticipations(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	other := createUser(t, repo, "u2@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	sm := newMachine(repo)
	_, err := sm.Join(ctx, session.ID, user.ID)
	require.NoError(t, err)
	_, err = sm.Join(ctx, session.ID, other.ID)
	require.NoError(t, err)

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Users().DeleteTx(ctx, tx, user.ID)
	})
	require.NoError(t, err)

	_, err = repo.Users().GetByID(ctx, user.ID)
	assert.True(t, goerrors.IsNotFound(err))

	stored, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{other.ID}, stored.UserIDs())

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Users().DeleteTx(ctx, tx, user.ID)
	})
	assert.True(t, HasTextCode(err, TextCodeUserNotFound))
}

func TestSessions_CreateReadUpdate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	session := createSession(t, repo, "Hatha")
	assert.NotNil(t, session.Participants)
	assert.Empty(t, session.UserIDs())

	found, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hatha", found.Name)
	assert.Equal(t, int64(1), found.TeacherID)
	assert.True(t, found.Date.Equal(time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)))

	found.Name = "Vinyasa"
	found.TeacherID = 2
	found.Description = "Evening flow"

	var updated *Session
	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		updated, err = repo.Sessions().UpdateTx(ctx, tx, found)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "Vinyasa", updated.Name)
	assert.Equal(t, int64(2), updated.TeacherID)
	assert.Equal(t, "Evening flow", updated.Description)

	n, err := repo.Sessions().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSessions_UpdateDoesNotTouchParticipants(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	_, err := newMachine(repo).Join(ctx, session.ID, user.ID)
	require.NoError(t, err)

	session.Name = "Renamed"
	session.Participants = nil

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Sessions().UpdateTx(ctx, tx, session)
		return err
	})
	require.NoError(t, err)

	stored, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.Equal(t, []int64{user.ID}, stored.UserIDs())
}

func TestSessions_MissingRecords(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Sessions().GetByID(ctx, 999999)
	assert.True(t, HasTextCode(err, TextCodeSessionNotFound))

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Sessions().UpdateTx(ctx, tx, &Session{ID: 999999, Name: "x", TeacherID: 1})
		return err
	})
	assert.True(t, HasTextCode(err, TextCodeSessionNotFound))

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Sessions().DeleteTx(ctx, tx, 999999)
	})
	assert.True(t, HasTextCode(err, TextCodeSessionNotFound))
}

func TestSessions_DeleteRemovesParticipations(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	_, err := newMachine(repo).Join(ctx, session.ID, user.ID)
	require.NoError(t, err)

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Sessions().DeleteTx(ctx, tx, session.ID)
	})
	require.NoError(t, err)

	count, err := repo.DB().NewSelect().Model((*Participation)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	list, err := repo.Sessions().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepositoryManager_RunInTxHonoursCancelledContext(t *testing.T) {
	repo := setupRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSessions_SaveParticipantsKeepsConcurrentJoins(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	u1 := createUser(t, repo, "u1@studio.com", "secret")
	u2 := createUser(t, repo, "u2@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	sm := newMachine(repo)
	_, err := sm.Join(ctx, session.ID, u1.ID)
	require.NoError(t, err)

	// a leave that read the session before u2 joined
	stale, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{u1.ID}, stale.UserIDs())

	_, err = sm.Join(ctx, session.ID, u2.ID)
	require.NoError(t, err)

	leaving := stale.Participants[0]
	stale.Participants = stale.Participants[:0]

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Sessions().SaveParticipantsTx(ctx, tx, stale, leaving)
	})
	require.NoError(t, err)

	stored, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{u2.ID}, stored.UserIDs())
}

func TestSessions_SaveParticipantsRemovingMissingRow(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	_, err := newMachine(repo).Join(ctx, session.ID, user.ID)
	require.NoError(t, err)

	joined, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	leaving := joined.Participants[0]

	_, err = newMachine(repo).Leave(ctx, session.ID, user.ID)
	require.NoError(t, err)

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Sessions().SaveParticipantsTx(ctx, tx, joined, leaving)
	})
	require.Error(t, err)
	assert.True(t, HasTextCode(err, TextCodeNotParticipating))
}
