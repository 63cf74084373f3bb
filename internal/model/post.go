package model

// PostStatus values mirror the posts.status column.
type PostStatus string

const (
	PostPending PostStatus = "PENDING"
	PostActive  PostStatus = "ACTIVE"
	PostFailed  PostStatus = "FAILED"
)

// PostIDPrefix prefixes every business-facing post id.
const PostIDPrefix = "EVT-"

// Post is a company-authored content item. Media URL fields are the servable
// addresses; the matching Key fields are the storage deletion handles. Both
// stay empty while the post is PENDING.
type Post struct {
	Meta

	PostID    string     `json:"postId"`
	CompanyID string     `json:"companyId"`
	Status    PostStatus `json:"status"`

	Title   string `json:"title"`
	Caption string `json:"caption"`

	CoverImageURL *string  `json:"coverImageUrl"`
	CoverImageKey *string  `json:"coverImageKey"`
	ImageURLs     []string `json:"imageUrls"`
	ImageKeys     []string `json:"imageKeys"`
	VideoURL      *string  `json:"videoUrl"`
	VideoKey      *string  `json:"videoKey"`

	// ErrorMessage is set only when Status is FAILED.
	ErrorMessage *string `json:"errorMessage,omitempty"`
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.CoverImageURL = cloneString(p.CoverImageURL)
	c.CoverImageKey = cloneString(p.CoverImageKey)
	c.VideoURL = cloneString(p.VideoURL)
	c.VideoKey = cloneString(p.VideoKey)
	c.ErrorMessage = cloneString(p.ErrorMessage)
	if p.ImageURLs != nil {
		c.ImageURLs = append([]string(nil), p.ImageURLs...)
	}
	if p.ImageKeys != nil {
		c.ImageKeys = append([]string(nil), p.ImageKeys...)
	}
	return &c
}
