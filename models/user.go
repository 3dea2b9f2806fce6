package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is the member profile document. Registration/approval live in
// the external identity service; this shape exists for author display
// enrichment and for seeding.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password" json:"-"`
	Role       string             `bson:"role" json:"role"`     // member, admin
	Status     string             `bson:"status" json:"status"` // pending, approved, rejected
	DanceStyle string             `bson:"danceStyle" json:"danceStyle"`
	Bio        string             `bson:"bio" json:"bio"`
	ProfilePic string             `bson:"profilePic" json:"profilePic"`
	CreatedAt  int64              `bson:"createdAt" json:"createdAt"`
}

// UserRef is the trimmed author shape attached to posts and comments,
// mirroring the name/profilePic projection the feed displays.
type UserRef struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	ProfilePic string             `bson:"profilePic" json:"profilePic"`
}

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Ref projects the display subset of a user.
func (u *User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name, ProfilePic: u.ProfilePic}
}
