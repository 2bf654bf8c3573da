package repository

import (
	"context"
	"errors"

	"medfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PollRepository stores polls, their options and votes.
type PollRepository interface {
	Create(ctx context.Context, poll *models.Poll) error
	CreateOptions(ctx context.Context, options []models.PollOption) error
	UpdateSettings(ctx context.Context, poll *models.Poll) error
	FindByID(ctx context.Context, id uint) (*models.Poll, error)
	FindByPostID(ctx context.Context, postID uint) (*models.Poll, error)
	FindByPostIDs(ctx context.Context, postIDs []uint) ([]models.Poll, error)
	FindOption(ctx context.Context, optionID uint) (*models.PollOption, error)
	Options(ctx context.Context, pollIDs ...uint) ([]models.PollOption, error)
	VoteCounts(ctx context.Context, pollIDs ...uint) (map[uint]int, error)
	VotedOptionIDs(ctx context.Context, voterID uint, pollIDs ...uint) (map[uint]bool, error)
	// LockVoter serializes vote changes of one voter on one poll for the rest of the transaction.
	LockVoter(ctx context.Context, pollID, voterID uint) error
	InsertVote(ctx context.Context, vote *models.PollVote) (bool, error)
	DeleteVote(ctx context.Context, optionID, voterID uint) (bool, error)
	DeleteOtherVotes(ctx context.Context, pollID, voterID, keepOptionID uint) (int64, error)
	DeleteOptions(ctx context.Context, pollID uint) error
	DeleteByPostID(ctx context.Context, postID uint) error
}

type pollRepository struct {
	db *gorm.DB
}

// NewPollRepository creates a new PollRepository
func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) Create(ctx context.Context, poll *models.Poll) error {
	return r.db.WithContext(ctx).Create(poll).Error
}

func (r *pollRepository) CreateOptions(ctx context.Context, options []models.PollOption) error {
	if len(options) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&options).Error
}

func (r *pollRepository) UpdateSettings(ctx context.Context, poll *models.Poll) error {
	return r.db.WithContext(ctx).
		Model(poll).
		Select("question", "allow_add_options", "allow_multiple_choice", "updated_at").
		Updates(poll).Error
}

func (r *pollRepository) FindByID(ctx context.Context, id uint) (*models.Poll, error) {
	var poll models.Poll
	if err := r.db.WithContext(ctx).First(&poll, id).Error; err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) FindByPostID(ctx context.Context, postID uint) (*models.Poll, error) {
	var poll models.Poll
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&poll).Error; err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) FindByPostIDs(ctx context.Context, postIDs []uint) ([]models.Poll, error) {
	var polls []models.Poll
	if len(postIDs) == 0 {
		return polls, nil
	}
	err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Find(&polls).Error
	return polls, err
}

func (r *pollRepository) FindOption(ctx context.Context, optionID uint) (*models.PollOption, error) {
	var opt models.PollOption
	if err := r.db.WithContext(ctx).First(&opt, optionID).Error; err != nil {
		return nil, err
	}
	return &opt, nil
}

// Options returns options in creation order.
func (r *pollRepository) Options(ctx context.Context, pollIDs ...uint) ([]models.PollOption, error) {
	var opts []models.PollOption
	if len(pollIDs) == 0 {
		return opts, nil
	}
	err := r.db.WithContext(ctx).
		Where("poll_id IN ?", pollIDs).
		Order("id ASC").
		Find(&opts).Error
	return opts, err
}

func (r *pollRepository) VoteCounts(ctx context.Context, pollIDs ...uint) (map[uint]int, error) {
	counts := make(map[uint]int)
	if len(pollIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		OptionID uint
		Votes    int
	}
	err := r.db.WithContext(ctx).
		Model(&models.PollVote{}).
		Select("option_id, COUNT(*) AS votes").
		Where("poll_id IN ?", pollIDs).
		Group("option_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.OptionID] = row.Votes
	}
	return counts, nil
}

func (r *pollRepository) VotedOptionIDs(ctx context.Context, voterID uint, pollIDs ...uint) (map[uint]bool, error) {
	voted := make(map[uint]bool)
	if voterID == 0 || len(pollIDs) == 0 {
		return voted, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.PollVote{}).
		Where("voter_id = ? AND poll_id IN ?", voterID, pollIDs).
		Pluck("option_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		voted[id] = true
	}
	return voted, nil
}

// LockVoter takes a transaction-scoped advisory lock on PostgreSQL. Other dialects
// serialize writers already, so it is a no-op there.
func (r *pollRepository) LockVoter(ctx context.Context, pollID, voterID uint) error {
	if !isPostgres(r.db) {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(?, ?)", int32(pollID), int32(voterID)).Error
}

func (r *pollRepository) InsertVote(ctx context.Context, vote *models.PollVote) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "option_id"}, {Name: "voter_id"}},
			DoNothing: true,
		}).
		Create(vote)
	return res.RowsAffected == 1, missingReference(res.Error)
}

func (r *pollRepository) DeleteVote(ctx context.Context, optionID, voterID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("option_id = ? AND voter_id = ?", optionID, voterID).
		Delete(&models.PollVote{})
	return res.RowsAffected > 0, res.Error
}

func (r *pollRepository) DeleteOtherVotes(ctx context.Context, pollID, voterID, keepOptionID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("poll_id = ? AND voter_id = ? AND option_id <> ?", pollID, voterID, keepOptionID).
		Delete(&models.PollVote{})
	return res.RowsAffected, res.Error
}

// DeleteOptions removes every option of a poll together with their votes.
func (r *pollRepository) DeleteOptions(ctx context.Context, pollID uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("poll_id = ?", pollID).Delete(&models.PollVote{}).Error; err != nil {
		return err
	}
	return db.Where("poll_id = ?", pollID).Delete(&models.PollOption{}).Error
}

func (r *pollRepository) DeleteByPostID(ctx context.Context, postID uint) error {
	poll, err := r.FindByPostID(ctx, postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.DeleteOptions(ctx, poll.ID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Poll{}, poll.ID).Error
}
