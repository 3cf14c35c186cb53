package blogsync

import (
	"encoding/json"
	"time"
)

// Category is the editorial category a post is published under.
type Category string

const (
	CategoryTech          Category = "TECH"
	CategoryLifestyle     Category = "LIFESTYLE"
	CategoryTravel        Category = "TRAVEL"
	CategoryFood          Category = "FOOD"
	CategoryEducation     Category = "EDUCATION"
	CategoryHealth        Category = "HEALTH"
	CategoryFinance       Category = "FINANCE"
	CategorySports        Category = "SPORTS"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryBusiness      Category = "BUSINESS"
	CategoryScience       Category = "SCIENCE"
	CategoryArt           Category = "ART"
)

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{
		CategoryTech, CategoryLifestyle, CategoryTravel, CategoryFood,
		CategoryEducation, CategoryHealth, CategoryFinance, CategorySports,
		CategoryEntertainment, CategoryBusiness, CategoryScience, CategoryArt,
	}
}

var categoryLabels = map[Category]string{
	CategoryTech:          "Tech",
	CategoryLifestyle:     "Lifestyle",
	CategoryTravel:        "Travel",
	CategoryFood:          "Food",
	CategoryEducation:     "Education",
	CategoryHealth:        "Health",
	CategoryFinance:       "Finance",
	CategorySports:        "Sports",
	CategoryEntertainment: "Entertainment",
	CategoryBusiness:      "Business",
	CategoryScience:       "Science",
	CategoryArt:           "Art",
}

// String returns the wire form of the category.
func (c Category) String() string {
	return string(c)
}

// Label returns the human-readable form of the category.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return "Unknown"
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// CardType selects the visual card layout a post is presented with.
type CardType string

const (
	CardTopRight    CardType = "TOP_RIGHT"
	CardTopLeft     CardType = "TOP_LEFT"
	CardBottomRight CardType = "BOTTOM_RIGHT"
	CardBottomLeft  CardType = "BOTTOM_LEFT"
)

// CardTypes lists every valid card type.
func CardTypes() []CardType {
	return []CardType{CardTopRight, CardTopLeft, CardBottomRight, CardBottomLeft}
}

func (t CardType) String() string {
	return string(t)
}

// Valid reports whether the card type is one of the known values.
func (t CardType) Valid() bool {
	switch t {
	case CardTopRight, CardTopLeft, CardBottomRight, CardBottomLeft:
		return true
	}
	return false
}

// Author is the read-only author projection embedded in a post.
type Author struct {
	Name string `json:"name"`
}

// Counts carries the aggregate counters the server reports per post.
type Counts struct {
	Comments int `json:"comments"`
	LikedBy  int `json:"likedBy"`
}

// Post is the client's read-only projection of a server-owned post. The
// client never holds the canonical copy; every mutation is a request to the
// server with a local optimistic prediction only.
type Post struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     *Node     `json:"content"`
	Published   bool      `json:"published"`
	Slug        string    `json:"slug"`
	CoverImage  string    `json:"coverImage,omitempty"`
	Category    Category  `json:"category"`
	CardType    CardType  `json:"postType"`
	AuthorID    int64     `json:"authorId"`
	Author      *Author   `json:"author,omitempty"`
	Counts      Counts    `json:"_count"`
	LikedByMe   bool      `json:"likedByMe"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a shallow copy with its own Counts and Author. The content
// tree is shared; it is never mutated in place.
func (p *Post) Clone() *Post {
	out := *p
	if p.Author != nil {
		author := *p.Author
		out.Author = &author
	}
	return &out
}

// ToggleLiked flips the viewer's like flag and adjusts the counter, keeping
// the two consistent. This is the optimistic prediction for the like toggle.
func (p *Post) ToggleLiked() {
	if p.LikedByMe {
		p.LikedByMe = false
		if p.Counts.LikedBy > 0 {
			p.Counts.LikedBy--
		}
	} else {
		p.LikedByMe = true
		p.Counts.LikedBy++
	}
}

// AuthorName returns the author display name, or an empty string when the
// projection omits the author.
func (p *Post) AuthorName() string {
	if p.Author == nil {
		return ""
	}
	return p.Author.Name
}

// Serialize serializes the post to a byte slice.
func (p *Post) Serialize() ([]byte, error) {
	return json.Marshal(p)
}

// DeserializePost deserializes a byte slice to a post.
func DeserializePost(data []byte) (*Post, error) {
	var p Post
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// User is the authenticated viewer as reported by auth/me.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
