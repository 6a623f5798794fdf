package yoga

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Email         string    `bun:"email,notnull,unique,type:varchar(50)" json:"email"`
	FirstName     string    `bun:"first_name,notnull,type:varchar(20)" json:"firstName"`
	LastName      string    `bun:"last_name,notnull,type:varchar(20)" json:"lastName"`
	Password      string    `bun:"password,notnull,type:varchar(120)" json:"-"`
	Admin         bool      `bun:"admin,notnull" json:"admin"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Teacher is the teacher model
type Teacher struct {
	bun.BaseModel `bun:"table:teachers,alias:tch"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	FirstName     string    `bun:"first_name,notnull,type:varchar(20)" json:"firstName"`
	LastName      string    `bun:"last_name,notnull,type:varchar(20)" json:"lastName"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Session is a yoga class run by a teacher. Participants keep join order.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            int64            `bun:"id,pk,autoincrement" json:"id"`
	Name          string           `bun:"name,notnull,type:varchar(50)" json:"name"`
	Date          time.Time        `bun:"date,notnull" json:"date"`
	Description   string           `bun:"description,notnull,type:varchar(2500)" json:"description"`
	TeacherID     int64            `bun:"teacher_id,notnull" json:"teacher_id"`
	Teacher       *Teacher         `bun:"rel:belongs-to,join:teacher_id=id" json:"-"`
	Participants  []*Participation `bun:"rel:has-many,join:id=session_id" json:"-"`
	CreatedAt     time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time        `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Participation links a user to a session. A user appears at most
// once per session.
type Participation struct {
	bun.BaseModel `bun:"table:participate,alias:prt"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	SessionID     int64     `bun:"session_id,notnull,unique:session_user" json:"session_id"`
	UserID        int64     `bun:"user_id,notnull,unique:session_user" json:"user_id"`
	User          *User     `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

var (
	_ bun.BeforeAppendModelHook = (*User)(nil)
	_ bun.BeforeAppendModelHook = (*Teacher)(nil)
	_ bun.BeforeAppendModelHook = (*Session)(nil)
	_ bun.BeforeAppendModelHook = (*Participation)(nil)
)

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	touchTimestamps(query, &u.CreatedAt, &u.UpdatedAt)
	return nil
}

func (t *Teacher) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	touchTimestamps(query, &t.CreatedAt, &t.UpdatedAt)
	return nil
}

func (s *Session) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	touchTimestamps(query, &s.CreatedAt, &s.UpdatedAt)
	return nil
}

func (p *Participation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && p.CreatedAt.IsZero() {
		p.CreatedAt = timeNow()
	}
	return nil
}

// UserIDs returns the participant ids in join order
func (s *Session) UserIDs() []int64 {
	ids := make([]int64, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p == nil {
			continue
		}
		ids = append(ids, p.UserID)
	}
	return ids
}

// HasParticipant reports whether the user joined the session
func (s *Session) HasParticipant(userID int64) bool {
	return s.participantIndex(userID) >= 0
}

func (s *Session) participantIndex(userID int64) int {
	for i, p := range s.Participants {
		if p != nil && p.UserID == userID {
			return i
		}
	}
	return -1
}

// timeNow is the clock used for model timestamps
var timeNow = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func touchTimestamps(query bun.Query, createdAt, updatedAt *time.Time) {
	ts := timeNow()
	switch query.(type) {
	case *bun.InsertQuery:
		if createdAt.IsZero() {
			*createdAt = ts
		}
		*updatedAt = ts
	case *bun.UpdateQuery:
		*updatedAt = ts
	}
}
