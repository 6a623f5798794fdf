package yoga

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-yoga/auth"
)

// Controller serves the teacher, user and session endpoints
type Controller struct {
	Debug      bool
	repo       RepositoryManager
	machine    ParticipationMachine
	contextKey string
	logger     Logger
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithControllerDebug dumps payloads to stdout
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) {
		c.Debug = debug
	}
}

// WithContextKey sets the Locals key the principal is read from
func WithContextKey(key string) ControllerOption {
	return func(c *Controller) {
		if key != "" {
			c.contextKey = key
		}
	}
}

// NewController wires the controller. It panics if a dependency is missing.
func NewController(repo RepositoryManager, machine ParticipationMachine, opts ...ControllerOption) *Controller {
	if repo == nil {
		panic("yoga controller: repository manager is required")
	}
	if machine == nil {
		panic("yoga controller: participation machine is required")
	}

	c := &Controller{
		repo:       repo,
		machine:    machine,
		contextKey: auth.DefaultContextKey,
		logger:     auth.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// RegisterRoutes mounts the teacher, user and session routes on app.
// The guards run in front of every route of the three groups.
func RegisterRoutes[T any](app router.Router[T], controller *Controller, guards ...router.MiddlewareFunc) {
	teachers := app.Group("/teacher")
	teachers.Use(guards...)
	teachers.Get("/", controller.ListTeachers).SetName("teacher.list")
	teachers.Get("/:id", controller.GetTeacher).SetName("teacher.get")

	users := app.Group("/user")
	users.Use(guards...)
	users.Get("/:id", controller.GetUser).SetName("user.get")
	users.Delete("/:id", controller.DeleteUser).SetName("user.delete")

	sessions := app.Group("/session")
	sessions.Use(guards...)
	sessions.Get("/", controller.ListSessions).SetName("session.list")
	sessions.Post("/", controller.CreateSession).SetName("session.create")
	sessions.Get("/:id", controller.GetSession).SetName("session.get")
	sessions.Put("/:id", controller.UpdateSession).SetName("session.update")
	sessions.Delete("/:id", controller.DeleteSession).SetName("session.delete")
	sessions.Post("/:id/participate/:userId", controller.Participate).SetName("session.participate")
	sessions.Delete("/:id/participate/:userId", controller.NoLongerParticipate).SetName("session.leave")
}

func (a *Controller) ListTeachers(ctx router.Context) error {
	records, err := a.repo.Teachers().List(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, ToTeacherDTOs(records))
}

func (a *Controller) GetTeacher(ctx router.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	record, err := a.repo.Teachers().GetByID(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, ToTeacherDTO(record))
}

func (a *Controller) GetUser(ctx router.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	record, err := a.repo.Users().GetByID(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, ToUserDTO(record))
}

// DeleteUser removes an account. Only the account owner may do so.
func (a *Controller) DeleteUser(ctx router.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	principal, ok := auth.GetPrincipal(ctx, a.contextKey)
	if !ok {
		return auth.ErrUnauthenticated
	}

	err = a.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		record, err := a.repo.Users().GetByIDTx(txCtx, tx, id)
		if err != nil {
			return err
		}

		if record.Email != principal.Username {
			return withMetadata(ErrForbiddenUserOperation, map[string]any{"user_id": id})
		}

		return a.repo.Users().DeleteTx(txCtx, tx, id)
	})
	if err != nil {
		return err
	}

	a.logger.Info("user %d deleted their account", id)

	return sendOK(ctx)
}

func (a *Controller) ListSessions(ctx router.Context) error {
	records, err := a.repo.Sessions().List(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, ToSessionDTOs(records))
}

func (a *Controller) GetSession(ctx router.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	record, err := a.repo.Sessions().GetByID(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, ToSessionDTO(record))
}

func (a *Controller) CreateSession(ctx router.Context) error {
	payload, err := a.sessionPayload(ctx)
	if err != nil {
		return err
	}

	var out *Session
	err = a.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		if _, err := a.repo.Teachers().GetByIDTx(txCtx, tx, payload.TeacherID); err != nil {
			return err
		}

		record, err := a.repo.Sessions().CreateTx(txCtx, tx, payload.ToSession())
		if err != nil {
			return err
		}

		out = record
		return nil
	})
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, ToSessionDTO(out))
}

func (a *Controller) UpdateSession(ctx router.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	payload, err := a.sessionPayload(ctx)
	if err != nil {
		return err
	}

	var out *Session
	err = a.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		record, err := a.repo.Sessions().GetByIDTx(txCtx, tx, id)
		if err != nil {
			return err
		}

		if _, err := a.repo.Teachers().GetByIDTx(txCtx, tx, payload.TeacherID); err != nil {
			return err
		}

		changes := payload.ToSession()
		record.Name = changes.Name
		record.Date = changes.Date
		record.Description = changes.Description
		record.TeacherID = changes.TeacherID

		out, err = a.repo.Sessions().UpdateTx(txCtx, tx, record)
		return err
	})
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, ToSessionDTO(out))
}

func (a *Controller) DeleteSession(ctx router.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	err = a.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		return a.repo.Sessions().DeleteTx(txCtx, tx, id)
	})
	if err != nil {
		return err
	}

	return sendOK(ctx)
}

// Participate joins the user to the session
func (a *Controller) Participate(ctx router.Context) error {
	sessionID, userID, err := participationParams(ctx)
	if err != nil {
		return err
	}

	if _, err := a.machine.Join(ctx.Context(), sessionID, userID); err != nil {
		return err
	}

	return sendOK(ctx)
}

// NoLongerParticipate removes the user from the session
func (a *Controller) NoLongerParticipate(ctx router.Context) error {
	sessionID, userID, err := participationParams(ctx)
	if err != nil {
		return err
	}

	if _, err := a.machine.Leave(ctx.Context(), sessionID, userID); err != nil {
		return err
	}

	return sendOK(ctx)
}

func participationParams(ctx router.Context) (int64, int64, error) {
	sessionID, err := parseID(ctx, "id")
	if err != nil {
		return 0, 0, err
	}

	userID, err := parseID(ctx, "userId")
	if err != nil {
		return 0, 0, err
	}

	return sessionID, userID, nil
}

func (a *Controller) sessionPayload(ctx router.Context) (*SessionRequest, error) {
	payload := new(SessionRequest)

	if err := ctx.Bind(payload); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse session payload").
			WithCode(goerrors.CodeBadRequest)
	}

	if a.Debug {
		fmt.Println("======= SESSION PAYLOAD ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==============================")
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return payload, nil
}
