package conversation

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn represents one message in the conversations collection. Turns are
// append-only; Seq orders turns that share a CreatedAt timestamp.
type Turn struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Role      Role      `bson:"role"`
	Content   string    `bson:"content"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}
