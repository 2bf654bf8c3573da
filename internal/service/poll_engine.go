package service

import (
	"context"
	"fmt"
	"sort"

	"medfeed/internal/cache"
	"medfeed/internal/models"
	"medfeed/internal/observability"
	"medfeed/internal/repository"
	"medfeed/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PollSpec is the poll payload of a post create or update. A nil Options on
// update keeps the existing options and their votes.
type PollSpec struct {
	Question            string   `json:"question"`
	Options             []string `json:"options"`
	AllowAddOptions     bool     `json:"allow_add_options"`
	AllowMultipleChoice bool     `json:"allow_multiple_choice"`
}

// PollEngine owns poll creation, replacement, voting and tallies.
type PollEngine struct {
	uow   repository.UnitOfWork
	polls repository.PollRepository
}

func NewPollEngine(uow repository.UnitOfWork, polls repository.PollRepository) *PollEngine {
	return &PollEngine{uow: uow, polls: polls}
}

func normalizeSpec(spec *PollSpec) ([]string, error) {
	if err := validation.ValidatePollQuestion(spec.Question); err != nil {
		return nil, models.NewInvalidPollSpecError(err.Error())
	}
	opts, err := validation.NormalizePollOptions(spec.Options)
	if err != nil {
		return nil, models.NewInvalidPollSpecError(err.Error())
	}
	return opts, nil
}

// Create attaches a new poll to the post inside tx.
func (e *PollEngine) Create(ctx context.Context, tx *repository.Repositories, postID uint, spec PollSpec) (*models.Poll, error) {
	opts, err := normalizeSpec(&spec)
	if err != nil {
		return nil, err
	}
	poll := &models.Poll{
		PostID:              postID,
		Question:            spec.Question,
		AllowAddOptions:     spec.AllowAddOptions,
		AllowMultipleChoice: spec.AllowMultipleChoice,
	}
	if err := tx.Polls.Create(ctx, poll); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	if err := createOptions(ctx, tx, poll.ID, opts); err != nil {
		return nil, err
	}
	return poll, nil
}

func createOptions(ctx context.Context, tx *repository.Repositories, pollID uint, texts []string) error {
	options := make([]models.PollOption, len(texts))
	for i, text := range texts {
		options[i] = models.PollOption{PollID: pollID, Text: text}
	}
	if err := tx.Polls.CreateOptions(ctx, options); err != nil {
		return fmt.Errorf("create poll options: %w", err)
	}
	return nil
}

// Update creates the poll when the post has none. Otherwise the question and
// flags change in place and, when options are supplied, every option and vote
// is replaced.
func (e *PollEngine) Update(ctx context.Context, tx *repository.Repositories, postID uint, spec PollSpec) (*models.Poll, error) {
	poll, err := tx.Polls.FindByPostID(ctx, postID)
	if isNotFound(err) {
		return e.Create(ctx, tx, postID, spec)
	}
	if err != nil {
		return nil, fmt.Errorf("load poll: %w", err)
	}

	if err := validation.ValidatePollQuestion(spec.Question); err != nil {
		return nil, models.NewInvalidPollSpecError(err.Error())
	}
	var opts []string
	if spec.Options != nil {
		if opts, err = normalizeSpec(&spec); err != nil {
			return nil, err
		}
	}

	poll.Question = spec.Question
	poll.AllowAddOptions = spec.AllowAddOptions
	poll.AllowMultipleChoice = spec.AllowMultipleChoice
	if err := tx.Polls.UpdateSettings(ctx, poll); err != nil {
		return nil, fmt.Errorf("update poll: %w", err)
	}

	if spec.Options != nil {
		if err := tx.Polls.DeleteOptions(ctx, poll.ID); err != nil {
			return nil, fmt.Errorf("delete poll options: %w", err)
		}
		if err := createOptions(ctx, tx, poll.ID, opts); err != nil {
			return nil, err
		}
	}
	return poll, nil
}

// Delete removes the post's poll with its options and votes. No poll is a no-op.
func (e *PollEngine) Delete(ctx context.Context, tx *repository.Repositories, postID uint) error {
	if err := tx.Polls.DeleteByPostID(ctx, postID); err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}
	return nil
}

// Vote records voterID's choice of optionID and returns the fresh tally. On a
// single-choice poll the voter's other votes are cleared, so exactly one stays
// active and voting again for the current choice changes nothing. On a
// multiple-choice poll voting again for a chosen option retracts it.
func (e *PollEngine) Vote(ctx context.Context, optionID, voterID uint) (*models.Poll, error) {
	span, ctx := observability.NewSpan(ctx, "poll.vote",
		attribute.Int64("poll.option_id", int64(optionID)),
		attribute.Int64("doctor.id", int64(voterID)),
	)
	defer span.End()

	var pollID, postID uint
	outcome := "cast"
	err := e.uow.Do(ctx, func(tx *repository.Repositories) error {
		opt, err := tx.Polls.FindOption(ctx, optionID)
		if err != nil {
			return notFound(err, "Poll option", optionID)
		}
		poll, err := tx.Polls.FindByID(ctx, opt.PollID)
		if err != nil {
			return notFound(err, "Poll", opt.PollID)
		}
		post, err := tx.Posts.FindByID(ctx, poll.PostID)
		if err != nil {
			return notFound(err, "Post", poll.PostID)
		}
		if err := requireAccess(ctx, tx.Groups, post, voterID); err != nil {
			return err
		}
		pollID, postID = poll.ID, post.ID

		if err := tx.Polls.LockVoter(ctx, poll.ID, voterID); err != nil {
			return fmt.Errorf("lock voter: %w", err)
		}

		if poll.AllowMultipleChoice {
			retracted, err := tx.Polls.DeleteVote(ctx, optionID, voterID)
			if err != nil {
				return fmt.Errorf("delete vote: %w", err)
			}
			if retracted {
				outcome = "retracted"
				return nil
			}
		} else if _, err := tx.Polls.DeleteOtherVotes(ctx, poll.ID, voterID, optionID); err != nil {
			return fmt.Errorf("clear other votes: %w", err)
		}

		inserted, err := tx.Polls.InsertVote(ctx, &models.PollVote{PollID: poll.ID, OptionID: optionID, VoterID: voterID})
		if err != nil {
			return parentGone(fmt.Errorf("insert vote: %w", err), "Poll option", optionID)
		}
		switch {
		case inserted:
		case !poll.AllowMultipleChoice:
			outcome = "unchanged"
		default:
			// A concurrent request of the same voter won the insert.
			return repository.ErrConcurrentUpdate
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	observability.RecordEngagement("poll_vote", outcome)
	cache.InvalidatePost(ctx, postID)
	return e.Tally(ctx, pollID, voterID)
}

// AddOption appends an option to an existing poll. Allowed when the poll
// accepts suggestions or the actor authored the post.
func (e *PollEngine) AddOption(ctx context.Context, pollID uint, actor models.Actor, text string) (*models.Poll, error) {
	opt, err := validation.NormalizePollOption(text)
	if err != nil {
		return nil, models.NewInvalidPollSpecError(err.Error())
	}

	var postID uint
	err = e.uow.Do(ctx, func(tx *repository.Repositories) error {
		poll, err := tx.Polls.FindByID(ctx, pollID)
		if err != nil {
			return notFound(err, "Poll", pollID)
		}
		post, err := tx.Posts.FindByID(ctx, poll.PostID)
		if err != nil {
			return notFound(err, "Post", poll.PostID)
		}
		if err := requireAccess(ctx, tx.Groups, post, actor.ID); err != nil {
			return err
		}
		if !poll.AllowAddOptions && post.AuthorID != actor.ID {
			return models.NewForbiddenError("This poll does not accept new options")
		}
		postID = post.ID

		existing, err := tx.Polls.Options(ctx, poll.ID)
		if err != nil {
			return fmt.Errorf("load poll options: %w", err)
		}
		if len(existing) >= validation.MaxPollOptions {
			return models.NewInvalidPollSpecError(fmt.Sprintf("a poll takes at most %d options", validation.MaxPollOptions))
		}
		for _, o := range existing {
			if o.Text == opt {
				return models.NewInvalidPollSpecError(fmt.Sprintf("duplicate poll option %q", opt))
			}
		}
		return createOptions(ctx, tx, poll.ID, []string{opt})
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidatePost(ctx, postID)
	return e.Tally(ctx, pollID, actor.ID)
}

// Tally returns the poll with options ranked by votes, ties in creation order,
// each flagged with whether the viewer chose it.
func (e *PollEngine) Tally(ctx context.Context, pollID, viewerID uint) (*models.Poll, error) {
	poll, err := e.polls.FindByID(ctx, pollID)
	if err != nil {
		return nil, notFound(err, "Poll", pollID)
	}
	if err := e.annotate(ctx, []*models.Poll{poll}, viewerID); err != nil {
		return nil, err
	}
	return poll, nil
}

// TallyForPosts loads and ranks the polls of many posts in a fixed number of queries.
func (e *PollEngine) TallyForPosts(ctx context.Context, postIDs []uint, viewerID uint) (map[uint]*models.Poll, error) {
	out := make(map[uint]*models.Poll)
	if len(postIDs) == 0 {
		return out, nil
	}
	rows, err := e.polls.FindByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load polls: %w", err)
	}
	polls := make([]*models.Poll, len(rows))
	for i := range rows {
		polls[i] = &rows[i]
		out[rows[i].PostID] = polls[i]
	}
	if err := e.annotate(ctx, polls, viewerID); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *PollEngine) annotate(ctx context.Context, polls []*models.Poll, viewerID uint) error {
	if len(polls) == 0 {
		return nil
	}
	ids := make([]uint, len(polls))
	byID := make(map[uint]*models.Poll, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
		byID[p.ID] = p
		p.Options = nil
		p.TotalVotes = 0
	}

	options, err := e.polls.Options(ctx, ids...)
	if err != nil {
		return fmt.Errorf("load poll options: %w", err)
	}
	counts, err := e.polls.VoteCounts(ctx, ids...)
	if err != nil {
		return fmt.Errorf("count poll votes: %w", err)
	}
	voted, err := e.polls.VotedOptionIDs(ctx, viewerID, ids...)
	if err != nil {
		return fmt.Errorf("load viewer votes: %w", err)
	}

	for _, opt := range options {
		p := byID[opt.PollID]
		if p == nil {
			continue
		}
		opt.VoteCount = counts[opt.ID]
		opt.IsVoted = voted[opt.ID]
		p.TotalVotes += opt.VoteCount
		p.Options = append(p.Options, opt)
	}
	for _, p := range polls {
		RankPollOptions(p.Options)
	}
	return nil
}

// RankPollOptions orders options by vote count descending. Options must arrive
// in creation order; ties keep it.
func RankPollOptions(options []models.PollOption) {
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].VoteCount > options[j].VoteCount
	})
}
