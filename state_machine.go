package yoga

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-yoga/auth"
)

// ParticipationState is the state of a (session, user) pair
type ParticipationState string

const (
	NotParticipating ParticipationState = "NOT_PARTICIPATING"
	Participating    ParticipationState = "PARTICIPATING"
)

// ParticipationEvent moves a pair between states
type ParticipationEvent string

const (
	EventJoin  ParticipationEvent = "join"
	EventLeave ParticipationEvent = "leave"
)

// TransitionContext is passed into hooks after a transition was persisted
type TransitionContext struct {
	Session *Session
	UserID  int64
	Event   ParticipationEvent
	From    ParticipationState
	To      ParticipationState
	At      time.Time
}

// TransitionHook runs inside the transaction after the participant set
// was saved. Returning an error rolls the transition back.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// ParticipationMachine manages joins and leaves on sessions
type ParticipationMachine interface {
	Join(ctx context.Context, sessionID, userID int64) (*Session, error)
	Leave(ctx context.Context, sessionID, userID int64) (*Session, error)
	State(ctx context.Context, sessionID, userID int64) (ParticipationState, error)
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*participationMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *participationMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineLogger overrides the logger.
func WithStateMachineLogger(logger auth.Logger) StateMachineOption {
	return func(sm *participationMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithAfterTransitionHook adds a hook executed after persistence.
func WithAfterTransitionHook(h TransitionHook) StateMachineOption {
	return func(sm *participationMachine) {
		if h != nil {
			sm.afterHooks = append(sm.afterHooks, h)
		}
	}
}

type participationMachine struct {
	repo        RepositoryManager
	transitions map[ParticipationState]map[ParticipationEvent]ParticipationState
	rejections  map[ParticipationState]map[ParticipationEvent]*goerrors.Error
	afterHooks  []TransitionHook
	now         func() time.Time
	logger      auth.Logger
}

// NewParticipationMachine returns the join/leave state machine
func NewParticipationMachine(repo RepositoryManager, opts ...StateMachineOption) ParticipationMachine {
	sm := &participationMachine{
		repo: repo,
		transitions: map[ParticipationState]map[ParticipationEvent]ParticipationState{
			NotParticipating: {EventJoin: Participating},
			Participating:    {EventLeave: NotParticipating},
		},
		rejections: map[ParticipationState]map[ParticipationEvent]*goerrors.Error{
			NotParticipating: {EventLeave: ErrNotParticipating},
			Participating:    {EventJoin: ErrAlreadyParticipating},
		},
		now:    time.Now,
		logger: auth.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

// Join adds the user to the session participants. It fails with
// ErrSessionNotFound, ErrUserNotFound or ErrAlreadyParticipating.
func (sm *participationMachine) Join(ctx context.Context, sessionID, userID int64) (*Session, error) {
	var out *Session

	err := sm.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		session, err := sm.repo.Sessions().GetByIDTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		user, err := sm.repo.Users().GetByIDTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		from, to, err := sm.transition(session, userID, EventJoin)
		if err != nil {
			return err
		}

		session.Participants = append(session.Participants, &Participation{
			SessionID: session.ID,
			UserID:    user.ID,
			User:      user,
		})

		if err := sm.persist(ctx, tx, session, nil, userID, EventJoin, from, to); err != nil {
			return err
		}

		out = session
		return nil
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Leave removes the user from the session participants. It fails with
// ErrSessionNotFound or ErrNotParticipating.
func (sm *participationMachine) Leave(ctx context.Context, sessionID, userID int64) (*Session, error) {
	var out *Session

	err := sm.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		session, err := sm.repo.Sessions().GetByIDTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		from, to, err := sm.transition(session, userID, EventLeave)
		if err != nil {
			return err
		}

		idx := session.participantIndex(userID)
		removed := session.Participants[idx]
		remaining := make([]*Participation, 0, len(session.Participants)-1)
		remaining = append(remaining, session.Participants[:idx]...)
		remaining = append(remaining, session.Participants[idx+1:]...)
		session.Participants = remaining

		if err := sm.persist(ctx, tx, session, removed, userID, EventLeave, from, to); err != nil {
			return err
		}

		out = session
		return nil
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// State reports whether the user currently participates in the session
func (sm *participationMachine) State(ctx context.Context, sessionID, userID int64) (ParticipationState, error) {
	session, err := sm.repo.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return stateOf(session, userID), nil
}

func stateOf(session *Session, userID int64) ParticipationState {
	if session.HasParticipant(userID) {
		return Participating
	}
	return NotParticipating
}

func (sm *participationMachine) transition(session *Session, userID int64, event ParticipationEvent) (ParticipationState, ParticipationState, error) {
	from := stateOf(session, userID)
	meta := map[string]any{
		"session_id": session.ID,
		"user_id":    userID,
		"state":      string(from),
		"event":      string(event),
	}

	if to, ok := sm.transitions[from][event]; ok {
		return from, to, nil
	}

	if rejection, ok := sm.rejections[from][event]; ok {
		return from, from, withMetadata(rejection, meta)
	}

	return from, from, withMetadata(ErrInvalidTransition, meta)
}

func (sm *participationMachine) persist(ctx context.Context, tx bun.Tx, session *Session, removed *Participation, userID int64, event ParticipationEvent, from, to ParticipationState) error {
	var drop []*Participation
	if removed != nil {
		drop = append(drop, removed)
	}

	if err := sm.repo.Sessions().SaveParticipantsTx(ctx, tx, session, drop...); err != nil {
		return err
	}

	tc := TransitionContext{
		Session: session,
		UserID:  userID,
		Event:   event,
		From:    from,
		To:      to,
		At:      sm.now(),
	}

	for _, hook := range sm.afterHooks {
		if err := hook(ctx, tc); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "participation hook failed").
				WithMetadata(map[string]any{"event": string(event)})
		}
	}

	sm.logger.Info("session %d: user %d %s (%s -> %s)", session.ID, userID, event, from, to)

	return nil
}
