package domain

// GroupWikiEditor is the bgm.tv user group whose members hold wiki
// review rights.
const GroupWikiEditor int64 = 11

// User is the authenticated identity attached to a request. It is
// passed explicitly into every service operation; core logic never
// reads it from ambient context.
type User struct {
	UserID  int64 `json:"user_id"`
	GroupID int64 `json:"group_id"`
}

// AllowEdit reports whether the user may review patches. Users with
// review rights submit changes through the wiki directly, so they are
// barred from the suggestion flow.
func (u User) AllowEdit() bool {
	return u.GroupID == GroupWikiEditor
}

// PatchUser is the display identity of a submitter or reviewer,
// captured from the bgm.tv profile at login.
type PatchUser struct {
	UserID   int64  `gorm:"primaryKey;column:user_id" json:"user_id"`
	Username string `gorm:"not null;column:username" json:"username"`
	Nickname string `gorm:"not null;column:nickname" json:"nickname"`
}

func (PatchUser) TableName() string {
	return "patch_users"
}
