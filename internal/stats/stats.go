// Package stats computes aggregate figures over a snapshot of blog records.
// All functions are pure; they never touch a store.
package stats

import "errors"

// ErrEmptyInput is returned by aggregates that have no meaningful value for
// an empty collection.
var ErrEmptyInput = errors.New("stats: empty input")

// Blog is the view of a blog record the aggregates need.
type Blog interface {
	AuthorName() string
	LikeCount() int
}

type AuthorBlogs struct {
	Author string `json:"author"`
	Blogs  int    `json:"blogs"`
}

type AuthorLikes struct {
	Author string `json:"author"`
	Likes  int    `json:"likes"`
}

// TotalLikes returns the sum of likes, 0 for an empty slice.
func TotalLikes[B Blog](blogs []B) int {
	total := 0
	for _, b := range blogs {
		total += b.LikeCount()
	}

	return total
}

// FavoriteBlog returns the blog with the most likes. On a tie the earliest
// blog in the slice wins.
func FavoriteBlog[B Blog](blogs []B) (B, error) {
	var fav B
	if len(blogs) == 0 {
		return fav, ErrEmptyInput
	}

	fav = blogs[0]
	for _, b := range blogs[1:] {
		if b.LikeCount() > fav.LikeCount() {
			fav = b
		}
	}

	return fav, nil
}

// MostBlogs returns the author with the most blogs.
func MostBlogs[B Blog](blogs []B) (AuthorBlogs, error) {
	author, count, err := top(blogs, func(B) int { return 1 })
	if err != nil {
		return AuthorBlogs{}, err
	}

	return AuthorBlogs{Author: author, Blogs: count}, nil
}

// MostLikes returns the author whose blogs collected the most likes.
func MostLikes[B Blog](blogs []B) (AuthorLikes, error) {
	author, likes, err := top(blogs, func(b B) int { return b.LikeCount() })
	if err != nil {
		return AuthorLikes{}, err
	}

	return AuthorLikes{Author: author, Likes: likes}, nil
}

// top groups blogs by author, summing weight, and returns the heaviest group.
// Groups keep the order in which their author first appears, and a later
// group only wins with a strictly larger total, which is the same outcome as
// a stable descending sort.
func top[B Blog](blogs []B, weight func(B) int) (string, int, error) {
	if len(blogs) == 0 {
		return "", 0, ErrEmptyInput
	}

	totals := make(map[string]int)
	order := make([]string, 0)
	for _, b := range blogs {
		author := b.AuthorName()
		if _, seen := totals[author]; !seen {
			order = append(order, author)
		}
		totals[author] += weight(b)
	}

	best := order[0]
	for _, author := range order[1:] {
		if totals[author] > totals[best] {
			best = author
		}
	}

	return best, totals[best], nil
}

// Report bundles every aggregate. Pointer fields are nil for an empty snapshot.
type Report struct {
	Count        int          `json:"count"`
	TotalLikes   int          `json:"total_likes"`
	FavoriteBlog any          `json:"favorite_blog"`
	MostBlogs    *AuthorBlogs `json:"most_blogs"`
	MostLikes    *AuthorLikes `json:"most_likes"`
}

func Summarize[B Blog](blogs []B) Report {
	r := Report{
		Count:      len(blogs),
		TotalLikes: TotalLikes(blogs),
	}

	if fav, err := FavoriteBlog(blogs); err == nil {
		r.FavoriteBlog = fav
	}
	if mb, err := MostBlogs(blogs); err == nil {
		r.MostBlogs = &mb
	}
	if ml, err := MostLikes(blogs); err == nil {
		r.MostLikes = &ml
	}

	return r
}
