// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"medfeed/internal/database"
	"medfeed/internal/featureflags"
	"medfeed/internal/models"
	"medfeed/internal/notifications"
	"medfeed/internal/repository"
	"medfeed/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumDoctors         int
	NumPosts           int
	MaxCommentsPerPost int
	ShouldClean        bool
}

// Summary counts what a seeding run wrote.
type Summary struct {
	Doctors  int
	Groups   int
	Posts    int
	Comments int
	Likes    int
	Saves    int
	Votes    int
}

var (
	specialties = []string{
		"Cardiology", "Nephrology", "Neurology", "Oncology", "Pediatrics",
		"Emergency Medicine", "Critical Care", "Dermatology", "Radiology", "Endocrinology",
	}

	topics = []string{
		"cardiology", "nephrology", "AKI", "sepsis", "icu", "stroke", "diabetes",
		"oncology", "pediatrics", "radiology", "MedEd", "CaseReport", "FOAMed",
	}

	treatments = []string{
		"Watchful waiting", "ACE inhibitor", "ARB", "Beta blocker", "Loop diuretic",
		"Early dialysis", "IV fluids", "Steroids", "Surgery", "Refer to specialist",
	}
)

// Seeder writes demo data through the engagement services, so hashtag
// counters, poll tallies and notifications stay consistent with the rows.
type Seeder struct {
	db         *gorm.DB
	faker      *gofakeit.Faker
	posts      *service.PostService
	comments   *service.CommentService
	engagement *service.EngagementService
	polls      *service.PollEngine
}

// NewSeeder builds a seeder over db. A zero randSeed draws a random one.
func NewSeeder(db *gorm.DB, randSeed int64) *Seeder {
	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)
	// No realtime relay and no push dispatcher: seeded notices only land in the inbox.
	gateway := notifications.NewGateway(repos.Notifications, nil, nil, featureflags.NewManager(""))

	polls := service.NewPollEngine(uow, repos.Polls)
	feed := service.NewFeedService(repos, polls, repos.Groups)
	return &Seeder{
		db:         db,
		faker:      gofakeit.New(randSeed),
		posts:      service.NewPostService(uow, repos, repos.Groups, service.NewHashtagLedger(), polls, feed, gateway),
		comments:   service.NewCommentService(uow, repos, gateway),
		engagement: service.NewEngagementService(repos, gateway),
		polls:      polls,
	}
}

// Seed populates the database with test data
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Summary, error) {
	log.Printf("Starting database seeding with %d doctors and %d posts...", opts.NumDoctors, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	sum := &Summary{}

	doctors, err := s.SeedDoctors(opts.NumDoctors)
	if err != nil {
		return nil, fmt.Errorf("failed to create doctors: %w", err)
	}
	sum.Doctors = len(doctors)
	log.Printf("✓ %d doctors created", sum.Doctors)

	groups, err := s.SeedGroups(doctors)
	if err != nil {
		return nil, fmt.Errorf("failed to create groups: %w", err)
	}
	sum.Groups = len(groups)

	posts, err := s.SeedPosts(ctx, doctors, groups, opts.NumPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	sum.Posts = len(posts)
	log.Printf("✓ %d posts created", sum.Posts)

	if err := s.SeedEngagement(ctx, doctors, posts, opts.MaxCommentsPerPost, sum); err != nil {
		return nil, fmt.Errorf("failed to create engagement: %w", err)
	}
	log.Printf("✓ %d comments, %d likes, %d saves, %d votes", sum.Comments, sum.Likes, sum.Saves, sum.Votes)

	log.Println("Database seeding completed successfully!")
	return sum, nil
}

// ClearAll deletes every row of every schema-managed table, children first.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	all := database.PersistentModels()
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

// SeedDoctors creates n doctors, most of them verified, with push tokens for the verified ones.
func (s *Seeder) SeedDoctors(n int) ([]*models.Doctor, error) {
	if n <= 0 {
		return nil, nil
	}
	doctors := make([]*models.Doctor, 0, n)
	for i := 0; i < n; i++ {
		doctors = append(doctors, &models.Doctor{
			Name:       fmt.Sprintf("Dr. %s %s", s.faker.FirstName(), s.faker.LastName()),
			Specialty:  s.faker.RandomString(specialties),
			IsVerified: i == 0 || s.faker.Number(1, 10) <= 8,
		})
	}
	if err := s.db.Create(&doctors).Error; err != nil {
		return nil, err
	}

	var tokens []*models.PushToken
	for _, d := range doctors {
		if !d.IsVerified {
			continue
		}
		tokens = append(tokens, &models.PushToken{
			DoctorID: d.ID,
			Token:    "seed-" + s.faker.UUID(),
			Platform: s.faker.RandomString([]string{"ios", "android", "web"}),
		})
	}
	if len(tokens) > 0 {
		if err := s.db.Create(&tokens).Error; err != nil {
			return nil, err
		}
	}
	return doctors, nil
}

// SeedGroups creates one public and one private group and spreads doctors across them.
func (s *Seeder) SeedGroups(doctors []*models.Doctor) ([]*models.Group, error) {
	if len(doctors) == 0 {
		return nil, nil
	}
	groups := []*models.Group{
		{Name: "Renal Rounds", Privacy: models.GroupPrivacyPublic},
		{Name: "ICU Night Shift", Privacy: models.GroupPrivacyPrivate},
	}
	if err := s.db.Create(&groups).Error; err != nil {
		return nil, err
	}

	var members []*models.GroupMember
	for _, g := range groups {
		for _, d := range doctors {
			if s.faker.Bool() {
				members = append(members, &models.GroupMember{GroupID: g.ID, DoctorID: d.ID})
			}
		}
	}
	if len(members) > 0 {
		if err := s.db.Create(&members).Error; err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// SeedPosts publishes n posts from random authors. Every fifth post carries a
// poll and every fourth (offset by one) an image gallery.
func (s *Seeder) SeedPosts(ctx context.Context, doctors []*models.Doctor, groups []*models.Group, n int) ([]*models.Post, error) {
	if len(doctors) == 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := doctors[s.faker.Number(0, len(doctors)-1)]
		in := service.CreatePostInput{
			Content:    s.postContent(),
			Visibility: s.visibility(),
		}

		if i%5 == 0 {
			in.Poll = s.pollSpec()
		}
		if i%4 == 1 {
			in.MediaKind = models.MediaKindImage
			for j := s.faker.Number(1, 3); j > 0; j-- {
				in.MediaRefs = append(in.MediaRefs, fmt.Sprintf("https://picsum.photos/seed/%s/800/600", s.faker.UUID()))
			}
		}
		if i%7 == 3 && len(groups) > 0 && groups[0].Privacy == models.GroupPrivacyPublic {
			id := groups[0].ID
			in.GroupID = &id
		}

		post, err := s.posts.Create(ctx, models.Actor{ID: author.ID}, in)
		if err != nil {
			return nil, fmt.Errorf("create post %d: %w", i, err)
		}
		posts = append(posts, post)
	}

	// Spread activity over the last month so the feed has some depth.
	now := time.Now()
	for _, p := range posts {
		at := now.Add(-time.Duration(s.faker.Number(0, 30*24*60)) * time.Minute)
		if err := s.db.Model(&models.Post{}).Where("id = ?", p.ID).UpdateColumn("created_at", at).Error; err != nil {
			return nil, err
		}
		p.CreatedAt = at
	}
	return posts, nil
}

// SeedEngagement adds likes, saves, comment threads and poll votes. Actions the
// engine refuses for the chosen doctor (hidden posts, repeats) are skipped.
func (s *Seeder) SeedEngagement(ctx context.Context, doctors []*models.Doctor, posts []*models.Post, maxComments int, sum *Summary) error {
	if len(doctors) == 0 {
		return nil
	}
	for _, post := range posts {
		for _, d := range doctors {
			actor := models.Actor{ID: d.ID}
			if s.faker.Number(1, 100) <= 40 {
				ok, err := tolerate(s.engagement.TogglePostLike(ctx, post.ID, actor, models.IntentOn))
				if err != nil {
					return err
				}
				if ok {
					sum.Likes++
				}
			}
			if s.faker.Number(1, 100) <= 10 {
				ok, err := tolerate(s.engagement.TogglePostSave(ctx, post.ID, actor, models.IntentOn))
				if err != nil {
					return err
				}
				if ok {
					sum.Saves++
				}
			}
		}

		if err := s.seedThread(ctx, doctors, post, maxComments, sum); err != nil {
			return err
		}

		if post.Poll != nil && len(post.Poll.Options) > 0 {
			for _, d := range doctors {
				if s.faker.Bool() {
					continue
				}
				opt := post.Poll.Options[s.faker.Number(0, len(post.Poll.Options)-1)]
				_, err := s.polls.Vote(ctx, opt.ID, d.ID)
				ok, err := tolerate(err)
				if err != nil {
					return err
				}
				if ok {
					sum.Votes++
				}
			}
		}
	}
	return nil
}

func (s *Seeder) seedThread(ctx context.Context, doctors []*models.Doctor, post *models.Post, maxComments int, sum *Summary) error {
	if maxComments <= 0 {
		return nil
	}
	var thread []*models.Comment
	for i := s.faker.Number(0, maxComments); i > 0; i-- {
		author := doctors[s.faker.Number(0, len(doctors)-1)]
		in := service.AddCommentInput{PostID: post.ID, Body: s.faker.Sentence(s.faker.Number(4, 16))}
		if len(thread) > 0 && s.faker.Number(1, 100) <= 35 {
			parent := thread[s.faker.Number(0, len(thread)-1)].ID
			in.ParentID = &parent
		}

		c, err := s.comments.AddComment(ctx, models.Actor{ID: author.ID}, in)
		ok, err := tolerate(err)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		thread = append(thread, c)
		sum.Comments++

		if liker := doctors[s.faker.Number(0, len(doctors)-1)]; liker.ID != author.ID && s.faker.Bool() {
			if _, err := tolerate(s.comments.ToggleCommentLike(ctx, c.ID, models.Actor{ID: liker.ID}, models.IntentOn)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) postContent() string {
	content := s.faker.Sentence(s.faker.Number(8, 20))
	for i := s.faker.Number(1, 3); i > 0; i-- {
		content += " #" + s.faker.RandomString(topics)
	}
	return content
}

func (s *Seeder) visibility() models.Visibility {
	switch n := s.faker.Number(1, 100); {
	case n <= 75:
		return models.VisibilityPublic
	case n <= 92:
		return models.VisibilityFriends
	default:
		return models.VisibilityOwnerOnly
	}
}

func (s *Seeder) pollSpec() *service.PollSpec {
	options := append([]string(nil), treatments...)
	s.faker.ShuffleStrings(options)
	return &service.PollSpec{
		Question:            "What would you do next?",
		Options:             options[:s.faker.Number(2, 4)],
		AllowAddOptions:     s.faker.Bool(),
		AllowMultipleChoice: s.faker.Number(1, 100) <= 25,
	}
}

// tolerate reports whether err is nil, swallowing the refusals a random
// seeding run is expected to hit.
func tolerate(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	switch models.ErrorCode(err) {
	case models.CodeNotAccessible, models.CodeAlreadyLiked, models.CodeAlreadySaved, models.CodeForbidden:
		return false, nil
	}
	return false, err
}
