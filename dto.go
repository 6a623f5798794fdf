package yoga

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// SessionDTO is the wire shape of a session. Users lists participant
// ids in join order and is never nil.
type SessionDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	TeacherID   int64     `json:"teacher_id,omitempty"`
	Description string    `json:"description"`
	Users       []int64   `json:"users"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TeacherDTO is the wire shape of a teacher
type TeacherDTO struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserDTO is the wire shape of a user, without the password hash
type UserDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ToSessionDTO(s *Session) *SessionDTO {
	if s == nil {
		return nil
	}
	return &SessionDTO{
		ID:          s.ID,
		Name:        s.Name,
		Date:        s.Date,
		TeacherID:   s.TeacherID,
		Description: s.Description,
		Users:       s.UserIDs(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func ToSessionDTOs(records []*Session) []*SessionDTO {
	out := make([]*SessionDTO, 0, len(records))
	for _, s := range records {
		if dto := ToSessionDTO(s); dto != nil {
			out = append(out, dto)
		}
	}
	return out
}

func ToTeacherDTO(t *Teacher) *TeacherDTO {
	if t == nil {
		return nil
	}
	return &TeacherDTO{
		ID:        t.ID,
		FirstName: t.FirstName,
		LastName:  t.LastName,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func ToTeacherDTOs(records []*Teacher) []*TeacherDTO {
	out := make([]*TeacherDTO, 0, len(records))
	for _, t := range records {
		if dto := ToTeacherDTO(t); dto != nil {
			out = append(out, dto)
		}
	}
	return out
}

func ToUserDTO(u *User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// sessionDateLayouts are accepted for the date field, most specific first
var sessionDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// SessionRequest is the create and update payload. Users is accepted
// for symmetry with SessionDTO but ignored: participation changes only
// go through join and leave.
type SessionRequest struct {
	Name        string  `json:"name"`
	Date        string  `json:"date"`
	TeacherID   int64   `json:"teacher_id"`
	Description string  `json:"description"`
	Users       []int64 `json:"users,omitempty"`
}

// Validate will run validation rules
func (r SessionRequest) Validate() *goerrors.Error {
	// the name is stored trimmed
	r.Name = strings.TrimSpace(r.Name)

	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 50)),
			validation.Field(&r.Date, validation.Required, validation.By(validSessionDate)),
			validation.Field(&r.TeacherID, validation.Required, validation.Min(int64(1))),
			validation.Field(&r.Description, validation.Required, validation.RuneLength(1, 2500)),
		)
	}, "Invalid session payload")
}

// ToSession maps a validated request onto a session model
func (r SessionRequest) ToSession() *Session {
	date, _ := parseSessionDate(r.Date)
	return &Session{
		Name:        strings.TrimSpace(r.Name),
		Date:        date,
		TeacherID:   r.TeacherID,
		Description: r.Description,
	}
}

var errInvalidDate = errors.New("must be a valid date")

func validSessionDate(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := parseSessionDate(s); err != nil {
		return errInvalidDate
	}
	return nil
}

func parseSessionDate(s string) (time.Time, error) {
	var err error
	for _, layout := range sessionDateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
