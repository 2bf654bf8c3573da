package models

import "time"

// Poll is attached one-to-one to a post.
type Poll struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	PostID              uint         `gorm:"not null;uniqueIndex" json:"post_id"`
	Question            string       `gorm:"type:text" json:"question"`
	AllowAddOptions     bool         `gorm:"not null;default:false" json:"allow_add_options"`
	AllowMultipleChoice bool         `gorm:"not null;default:false" json:"allow_multiple_choice"`
	Options             []PollOption `gorm:"-" json:"options"`
	TotalVotes          int          `gorm:"-" json:"total_votes"`
	Post                *Post        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// PollOption is one choice of a poll. VoteCount and IsVoted are computed.
type PollOption struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PollID    uint      `gorm:"not null;index" json:"poll_id"`
	Text      string    `gorm:"size:280;not null" json:"text"`
	VoteCount int       `gorm:"-" json:"vote_count"`
	IsVoted   bool      `gorm:"-" json:"is_voted"`
	Poll      *Poll     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// PollVote records one voter choosing one option.
type PollVote struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	PollID    uint        `gorm:"not null;index" json:"poll_id"`
	OptionID  uint        `gorm:"not null;uniqueIndex:idx_option_voter" json:"option_id"`
	VoterID   uint        `gorm:"not null;uniqueIndex:idx_option_voter;index" json:"voter_id"`
	Poll      *Poll       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Option    *PollOption `gorm:"foreignKey:OptionID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time   `json:"created_at"`
}
