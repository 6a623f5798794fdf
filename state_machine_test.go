package yoga

import (
	"context"
	"errors"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-yoga/auth"
)

func newMachine(repo RepositoryManager, opts ...StateMachineOption) ParticipationMachine {
	opts = append([]StateMachineOption{WithStateMachineLogger(auth.NopLogger{})}, opts...)
	return NewParticipationMachine(repo, opts...)
}

func TestParticipation_JoinAddsUser(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	sm := newMachine(repo)

	updated, err := sm.Join(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{user.ID}, updated.UserIDs())

	state, err := sm.State(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, Participating, state)

	stored, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{user.ID}, stored.UserIDs())
}

func TestParticipation_DuplicateJoin(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	sm := newMachine(repo)

	_, err := sm.Join(ctx, session.ID, user.ID)
	require.NoError(t, err)

	_, err = sm.Join(ctx, session.ID, user.ID)
	require.Error(t, err)
	assert.True(t, HasTextCode(err, TextCodeAlreadyParticipating))

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
	assert.Equal(t, 400, richErr.Code)
	assert.Equal(t, session.ID, richErr.Metadata["session_id"])
	assert.Equal(t, user.ID, richErr.Metadata["user_id"])

	stored, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{user.ID}, stored.UserIDs(), "participant set must be unchanged")

	// the shared error value is never mutated
	assert.Empty(t, ErrAlreadyParticipating.Metadata)
}

func TestParticipation_JoinUnknownSession(t *testing.T) {
	repo := setupRepo(t)
	user := createUser(t, repo, "u1@studio.com", "secret")

	_, err := newMachine(repo).Join(context.Background(), 999999, user.ID)
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
	assert.True(t, HasTextCode(err, TextCodeSessionNotFound))
}

func TestParticipation_JoinUnknownUser(t *testing.T) {
	repo := setupRepo(t)
	session := createSession(t, repo, "Hatha")

	_, err := newMachine(repo).Join(context.Background(), session.ID, 424242)
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
	assert.True(t, HasTextCode(err, TextCodeUserNotFound))
}

func TestParticipation_JoinThenLeaveRestoresState(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	sm := newMachine(repo)

	_, err := sm.Join(ctx, session.ID, user.ID)
	require.NoError(t, err)

	updated, err := sm.Leave(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.UserIDs())

	state, err := sm.State(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, NotParticipating, state)
}

func TestParticipation_LeaveWithoutJoin(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	_, err := newMachine(repo).Leave(ctx, session.ID, user.ID)
	require.Error(t, err)
	assert.True(t, HasTextCode(err, TextCodeNotParticipating))
	assert.False(t, goerrors.IsNotFound(err))
}

func TestParticipation_LeaveUnknownSession(t *testing.T) {
	repo := setupRepo(t)

	_, err := newMachine(repo).Leave(context.Background(), 999999, 1)
	require.Error(t, err)
	assert.True(t, HasTextCode(err, TextCodeSessionNotFound))
}

func TestParticipation_LeaveKeepsOrderOfOthers(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	u1 := createUser(t, repo, "u1@studio.com", "secret")
	u2 := createUser(t, repo, "u2@studio.com", "secret")
	u3 := createUser(t, repo, "u3@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	sm := newMachine(repo)

	for _, u := range []*User{u1, u2} {
		_, err := sm.Join(ctx, session.ID, u.ID)
		require.NoError(t, err)
	}

	_, err := sm.Leave(ctx, session.ID, u1.ID)
	require.NoError(t, err)

	updated, err := sm.Join(ctx, session.ID, u3.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{u2.ID, u3.ID}, updated.UserIDs())

	updated, err = sm.Join(ctx, session.ID, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{u2.ID, u3.ID, u1.ID}, updated.UserIDs())

	updated, err = sm.Leave(ctx, session.ID, u3.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{u2.ID, u1.ID}, updated.UserIDs())

	stored, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{u2.ID, u1.ID}, stored.UserIDs())
}

func TestParticipation_HooksSeeTransition(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	var seen []TransitionContext
	sm := newMachine(repo, WithAfterTransitionHook(func(ctx context.Context, tc TransitionContext) error {
		seen = append(seen, tc)
		return nil
	}))

	_, err := sm.Join(ctx, session.ID, user.ID)
	require.NoError(t, err)
	_, err = sm.Leave(ctx, session.ID, user.ID)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, EventJoin, seen[0].Event)
	assert.Equal(t, NotParticipating, seen[0].From)
	assert.Equal(t, Participating, seen[0].To)
	assert.Equal(t, EventLeave, seen[1].Event)
	assert.Equal(t, Participating, seen[1].From)
	assert.Equal(t, NotParticipating, seen[1].To)
}

func TestParticipation_FailingHookRollsBack(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	sm := newMachine(repo, WithAfterTransitionHook(func(ctx context.Context, tc TransitionContext) error {
		return errors.New("notification queue unavailable")
	}))

	_, err := sm.Join(ctx, session.ID, user.ID)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryOperation, richErr.Category)

	stored, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.UserIDs())
}

func TestParticipation_ConcurrentJoinsAddEachUserOnce(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "u1@studio.com", "secret")
	session := createSession(t, repo, "Hatha")

	sm := newMachine(repo)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sm.Join(ctx, session.ID, user.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, HasTextCode(err, TextCodeAlreadyParticipating), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)

	stored, err := repo.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{user.ID}, stored.UserIDs())
}
