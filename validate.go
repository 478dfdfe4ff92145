package ledger

// Length bounds, in bytes.
const (
	MaxBlogTitleLen       = 50
	MaxBlogDescriptionLen = 100
	MaxPostTitleLen       = 50
	MaxPostContentLen     = 5000
	MaxCommentContentLen  = 300
)

func checkLen(field, s string, min, max int) error {
	if len(s) < min || len(s) > max {
		return &ValidationError{Field: field, Limit: max}
	}
	return nil
}

func validateBlog(title, description string) error {
	if err := checkLen("title", title, 1, MaxBlogTitleLen); err != nil {
		return err
	}
	return checkLen("description", description, 0, MaxBlogDescriptionLen)
}

func validatePostTitle(title string) error {
	return checkLen("title", title, 1, MaxPostTitleLen)
}

func validatePostContent(content string) error {
	return checkLen("content", content, 0, MaxPostContentLen)
}

func validateComment(content string) error {
	return checkLen("content", content, 0, MaxCommentContentLen)
}
