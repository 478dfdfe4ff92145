package ledger

type (
	// InitializeBlogRequest asks to create a blog owned by Owner.
	InitializeBlogRequest struct {
		Owner       Principal
		Title       string
		Description string
	}

	// CreatePostRequest asks to add a post to the blog at Blog.
	CreatePostRequest struct {
		Blog    Address
		Title   string
		Content string
	}

	// UpdatePostRequest asks to replace the content of the post titled Title in the blog at Blog.
	UpdatePostRequest struct {
		Blog    Address
		Title   string
		Content string
	}

	// DeletePostRequest asks to delete the post titled Title from the blog at Blog.
	DeletePostRequest struct {
		Blog  Address
		Title string
	}

	// AddCommentRequest asks to add Author's comment to the post at Post.
	AddCommentRequest struct {
		Post    Address
		Author  Principal
		Content string
	}

	// DeleteCommentRequest asks to delete Author's comment on the post at Post.
	DeleteCommentRequest struct {
		Post   Address
		Author Principal
	}
)

// Operation codes, the first field of every request message.
const (
	opInitializeBlog = iota + 1
	opCreatePost
	opUpdatePost
	opDeletePost
	opAddComment
	opDeleteComment
)

// The Message methods produce the canonical bytes that signers sign
// (see Sign and Authenticate).
// The program ID is included so a signature is only good in one namespace.

func (r InitializeBlogRequest) Message(program Address) []byte {
	buf := messageHeader(program, opInitializeBlog)
	buf = appendBytesField(buf, 3, r.Owner[:])
	buf = appendStringField(buf, 4, r.Title)
	return appendStringField(buf, 5, r.Description)
}

func (r CreatePostRequest) Message(program Address) []byte {
	buf := messageHeader(program, opCreatePost)
	buf = appendBytesField(buf, 3, r.Blog[:])
	buf = appendStringField(buf, 4, r.Title)
	return appendStringField(buf, 5, r.Content)
}

func (r UpdatePostRequest) Message(program Address) []byte {
	buf := messageHeader(program, opUpdatePost)
	buf = appendBytesField(buf, 3, r.Blog[:])
	buf = appendStringField(buf, 4, r.Title)
	return appendStringField(buf, 5, r.Content)
}

func (r DeletePostRequest) Message(program Address) []byte {
	buf := messageHeader(program, opDeletePost)
	buf = appendBytesField(buf, 3, r.Blog[:])
	return appendStringField(buf, 4, r.Title)
}

func (r AddCommentRequest) Message(program Address) []byte {
	buf := messageHeader(program, opAddComment)
	buf = appendBytesField(buf, 3, r.Post[:])
	buf = appendBytesField(buf, 4, r.Author[:])
	return appendStringField(buf, 5, r.Content)
}

func (r DeleteCommentRequest) Message(program Address) []byte {
	buf := messageHeader(program, opDeleteComment)
	buf = appendBytesField(buf, 3, r.Post[:])
	return appendBytesField(buf, 4, r.Author[:])
}

func messageHeader(program Address, op uint64) []byte {
	buf := appendVarintField(nil, 1, op)
	return appendBytesField(buf, 2, program[:])
}
