// Package seed provides helpers to create default and demo data for the
// application database. Demo content is intended for development and
// testing only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"blogspace/internal/models"
	"blogspace/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds domain entities with realistic fake content. It does not
// persist anything.
type Factory struct {
	faker      *gofakeit.Faker
	categories []string
	maxDays    int
}

// NewFactory creates a Factory. A zero seed picks a random one; any other
// value makes the output reproducible.
func NewFactory(seed int64, categories []models.Category, maxDays int) *Factory {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		names = []string{"Technology"}
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{faker: gofakeit.New(seed), categories: names, maxDays: maxDays}
}

// User builds a profile with a provider-style subject id.
func (f *Factory) User(overrides ...func(*models.User)) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		ID:          f.faker.UUID(),
		Email:       strings.ToLower(fmt.Sprintf("%s.%s.%s@example.com", first, last, f.faker.LetterN(4))),
		DisplayName: first + " " + last,
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		Role:        models.RoleUser,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// Post builds a post by author. Roughly one in five is a draft and
// created_at is spread over the last maxDays.
func (f *Factory) Post(author *models.User, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	status := models.PostStatusPublished
	if f.faker.Number(1, 5) == 1 {
		status = models.PostStatusDraft
	}

	tags := make([]string, 0, 3)
	for range f.faker.Number(0, 3) {
		tags = append(tags, strings.ToLower(f.faker.Word()))
	}

	post := &models.Post{
		Slug:          validation.Slugify(title) + "-" + strings.ToLower(f.faker.LetterN(6)),
		Title:         title,
		Content:       f.faker.Paragraph(f.faker.Number(2, 6), 5, 12, "\n\n"),
		Excerpt:       f.faker.Sentence(20),
		Category:      f.faker.RandomString(f.categories),
		Tags:          tags,
		FeaturedImage: fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", f.faker.UUID()),
		Status:        status,
		AuthorID:      author.ID,
		AuthorName:    author.DisplayName,
		AuthorAvatar:  author.AvatarURL,
		Views:         int64(f.faker.Number(0, 2000)),
		CreatedAt:     f.pastTime(),
	}
	if status == models.PostStatusDraft {
		post.Views = 0
	}
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

// Comment builds a comment by author on post, dated after the post.
func (f *Factory) Comment(post *models.Post, author *models.User) *models.Comment {
	at := post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute)
	if at.After(time.Now()) {
		at = time.Now()
	}
	return &models.Comment{
		PostID:       post.ID,
		AuthorID:     author.ID,
		AuthorName:   author.DisplayName,
		AuthorAvatar: author.AvatarURL,
		Content:      f.faker.Sentence(f.faker.Number(4, 30)),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

// Pick returns up to n distinct users in random order.
func (f *Factory) Pick(users []*models.User, n int) []*models.User {
	if n > len(users) {
		n = len(users)
	}
	shuffled := append([]*models.User(nil), users...)
	f.faker.ShuffleAnySlice(shuffled)
	return shuffled[:n]
}

// Intn returns a number in [lo, hi].
func (f *Factory) Intn(lo, hi int) int {
	return f.faker.Number(lo, hi)
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return time.Now().Add(-back).UTC().Truncate(time.Second)
}
