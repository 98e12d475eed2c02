package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PatchState is the review lifecycle state of a patch. Pending is the
// only state with outward transitions; the other three are terminal.
type PatchState int

const (
	StatePending PatchState = iota
	StateAccepted
	StateRejected
	StateOutdated
)

func (s PatchState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	case StateOutdated:
		return "outdated"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s PatchState) Terminal() bool {
	return s != StatePending
}

// TargetKind discriminates the two patch variants.
type TargetKind string

const (
	KindSubject TargetKind = "subject"
	KindEpisode TargetKind = "episode"
)

// ReviewBase holds the fields common to both patch variants: identity,
// state, provenance, and the audit trail. IDs are UUIDv7, so ordering
// by id is ordering by creation time.
type ReviewBase struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	State        PatchState     `gorm:"not null;default:0;index;column:state" json:"state"`
	FromUserID   int64          `gorm:"not null;index;column:from_user_id" json:"from_user_id"`
	WikiUserID   int64          `gorm:"not null;default:0;column:wiki_user_id" json:"wiki_user_id"`
	Description  string         `gorm:"not null;column:description" json:"description"`
	RejectReason string         `gorm:"column:reject_reason" json:"reject_reason,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();column:created_at" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now();column:updated_at" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

// SubjectPatch proposes changes to a subject's wiki fields. For each
// editable field the proposed value is set only when it differs from
// the snapshot at submission time, and then the original_* column
// captures the exact snapshot value. The edited_* columns are written
// at accept time and record what the reviewer actually applied.
type SubjectPatch struct {
	ReviewBase
	SubjectID   int64 `gorm:"not null;index;column:subject_id" json:"subject_id"`
	SubjectType int64 `gorm:"not null;default:0;column:subject_type" json:"subject_type"`

	Name         *string `gorm:"column:name" json:"name"`
	OriginalName *string `gorm:"column:original_name" json:"original_name"`
	EditedName   *string `gorm:"column:edited_name" json:"edited_name"`

	Infobox         *string `gorm:"column:infobox" json:"infobox"`
	OriginalInfobox *string `gorm:"column:original_infobox" json:"original_infobox"`
	EditedInfobox   *string `gorm:"column:edited_infobox" json:"edited_infobox"`

	Summary         *string `gorm:"column:summary" json:"summary"`
	OriginalSummary *string `gorm:"column:original_summary" json:"original_summary"`
	EditedSummary   *string `gorm:"column:edited_summary" json:"edited_summary"`

	// Nsfw records the resulting flag value when the submission flips
	// it, nil when the flag is untouched.
	Nsfw *bool `gorm:"column:nsfw" json:"nsfw"`
}

func (SubjectPatch) TableName() string {
	return "subject_patch"
}

func (p *SubjectPatch) Kind() TargetKind {
	return KindSubject
}

// EpisodePatch proposes changes to an episode's wiki fields. Same
// proposed/original/edited contract as SubjectPatch.
type EpisodePatch struct {
	ReviewBase
	EpisodeID int64 `gorm:"not null;index;column:episode_id" json:"episode_id"`

	Name         *string `gorm:"column:name" json:"name"`
	OriginalName *string `gorm:"column:original_name" json:"original_name"`
	EditedName   *string `gorm:"column:edited_name" json:"edited_name"`

	NameCN         *string `gorm:"column:name_cn" json:"name_cn"`
	OriginalNameCN *string `gorm:"column:original_name_cn" json:"original_name_cn"`
	EditedNameCN   *string `gorm:"column:edited_name_cn" json:"edited_name_cn"`

	Duration         *string `gorm:"column:duration" json:"duration"`
	OriginalDuration *string `gorm:"column:original_duration" json:"original_duration"`
	EditedDuration   *string `gorm:"column:edited_duration" json:"edited_duration"`

	Airdate         *string `gorm:"column:airdate" json:"airdate"`
	OriginalAirdate *string `gorm:"column:original_airdate" json:"original_airdate"`
	EditedAirdate   *string `gorm:"column:edited_airdate" json:"edited_airdate"`

	Description         *string `gorm:"column:ep_description" json:"ep_description"`
	OriginalDescription *string `gorm:"column:original_ep_description" json:"original_ep_description"`
	EditedDescription   *string `gorm:"column:edited_ep_description" json:"edited_ep_description"`
}

func (EpisodePatch) TableName() string {
	return "episode_patch"
}

func (p *EpisodePatch) Kind() TargetKind {
	return KindEpisode
}

// SubjectWiki is the read-only subject snapshot from the wiki API.
type SubjectWiki struct {
	Name    string `json:"name"`
	Infobox string `json:"infobox"`
	Summary string `json:"summary"`
	Nsfw    bool   `json:"nsfw"`
	TypeID  int64  `json:"typeID"`
}

// EpisodeWiki is the read-only episode snapshot from the wiki API.
type EpisodeWiki struct {
	Name        string `json:"name"`
	NameCN      string `json:"name_cn"`
	Duration    string `json:"duration"`
	Airdate     string `json:"airdate"`
	Description string `json:"description"`
}
