package model

import "time"

// UncategorizedName is the category posts fall back to when the author
// does not name one. The row is created when the catalog starts up.
const UncategorizedName = "Uncategorized"

// Category is a flat, uniquely named tag for posts.
type Category struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Post is a published article. There is no draft state: a post is public as
// soon as it is created.
//
// CategoryName and AuthorName are read-side conveniences filled by joins;
// they are ignored on writes.
type Post struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	CategoryID   int64     `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	AuthorID     int64     `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	CreatedAt    time.Time `json:"createdAt"`
	ModifiedAt   time.Time `json:"modifiedAt"`
}

// Comment is reserved for a future feature. The table exists so the schema
// matches the deployed one, but nothing reads or writes it yet.
type Comment struct {
	ID int64 `json:"id"`
}
