// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"

	"loom/internal/models"
	"loom/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Profile describes how much demo data to generate.
type Profile struct {
	Users            int `yaml:"users"`
	ThreadsPerUser   int `yaml:"threads_per_user"`
	TitledRatio      int `yaml:"titled_ratio"`      // percent of threads that get a title
	PreviewedRatio   int `yaml:"previewed_ratio"`   // percent of threads that get a preview
	UsernameMaxWords int `yaml:"username_max_words"`
}

// DefaultProfile is used when no profile file is supplied.
var DefaultProfile = Profile{
	Users:          25,
	ThreadsPerUser: 8,
	TitledRatio:    70,
	PreviewedRatio: 60,
}

// LoadProfile reads a YAML seed profile from disk.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read seed profile: %w", err)
	}
	p := DefaultProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse seed profile: %w", err)
	}
	return p, nil
}

// Seeder populates the store with fake users and threads.
type Seeder struct {
	db         *gorm.DB
	userRepo   repository.UserRepository
	threadRepo repository.ThreadRepository
}

// NewSeeder returns a Seeder writing through the repositories so seeded data
// obeys the same constraints as production traffic.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:         db,
		userRepo:   repository.NewUserRepository(db),
		threadRepo: repository.NewThreadRepository(db),
	}
}

// ClearAll truncates both relations. Destructive; development only.
func (s *Seeder) ClearAll() error {
	if err := s.db.Exec("DELETE FROM threads").Error; err != nil {
		return err
	}
	return s.db.Exec("DELETE FROM users").Error
}

// Run generates users and threads according to the profile.
func (s *Seeder) Run(ctx context.Context, p Profile) error {
	if p.Users <= 0 {
		p.Users = DefaultProfile.Users
	}
	if p.ThreadsPerUser < 0 {
		p.ThreadsPerUser = 0
	}

	created := 0
	for i := 0; i < p.Users; i++ {
		user := &models.User{Username: gofakeit.Username()}
		if err := s.userRepo.Create(ctx, user); err != nil {
			if models.IsCode(err, models.CodeDuplicateUsername) {
				// Fake usernames occasionally collide; skip and move on.
				continue
			}
			return fmt.Errorf("seed user: %w", err)
		}
		created++

		for j := 0; j < p.ThreadsPerUser; j++ {
			thread := &models.Thread{UserID: user.ID}
			if gofakeit.Number(1, 100) <= p.TitledRatio {
				title := gofakeit.Sentence(gofakeit.Number(2, 6))
				thread.Title = &title
			}
			if gofakeit.Number(1, 100) <= p.PreviewedRatio {
				preview := gofakeit.Sentence(gofakeit.Number(4, 12))
				thread.Preview = &preview
			}
			if err := s.threadRepo.Create(ctx, thread); err != nil {
				return fmt.Errorf("seed thread for user %s: %w", user.ID, err)
			}
		}
	}

	log.Printf("seeded %d users with up to %d threads each", created, p.ThreadsPerUser)
	return nil
}
