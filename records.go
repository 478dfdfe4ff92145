package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Layout identifies the record type held in a slot.
type Layout uint8

const (
	LayoutBlog Layout = iota + 1
	LayoutPost
	LayoutComment
)

func (l Layout) String() string {
	switch l {
	case LayoutBlog:
		return "blog"
	case LayoutPost:
		return "post"
	case LayoutComment:
		return "comment"
	}
	return fmt.Sprintf("layout(%d)", uint8(l))
}

// Capacity is the size in bytes of a slot holding a record of this layout:
// the encoded size of the record with every field at its maximum.
func (l Layout) Capacity() int {
	return capacities[l]
}

var capacities map[Layout]int

func init() {
	var (
		maxAddr      Address
		maxPrincipal Principal
	)
	for i := range maxAddr {
		maxAddr[i] = 0xff
		maxPrincipal[i] = 0xff
	}
	var (
		blog = &Blog{
			Owner:         maxPrincipal,
			Title:         strings.Repeat("x", MaxBlogTitleLen),
			Description:   strings.Repeat("x", MaxBlogDescriptionLen),
			NumberOfPosts: math.MaxUint64,
			CreatedAt:     math.MinInt64,
			Bump:          math.MaxUint8,
		}
		post = &Post{
			Owner:            maxPrincipal,
			Blog:             maxAddr,
			Title:            strings.Repeat("x", MaxPostTitleLen),
			Content:          strings.Repeat("x", MaxPostContentLen),
			NumberOfComments: math.MaxUint64,
			CreatedAt:        math.MinInt64,
			UpdatedAt:        math.MinInt64,
			Bump:             math.MaxUint8,
		}
		comment = &Comment{
			CommentAuthor: maxPrincipal,
			BlogPost:      maxAddr,
			Blog:          maxAddr,
			Content:       strings.Repeat("x", MaxCommentContentLen),
			CreatedAt:     math.MinInt64,
			Bump:          math.MaxUint8,
		}
	)
	capacities = map[Layout]int{
		LayoutBlog:    len(blog.Marshal()),
		LayoutPost:    len(post.Marshal()),
		LayoutComment: len(comment.Marshal()),
	}
}

// Record is implemented by Blog, Post, and Comment.
type Record interface {
	Layout() Layout
	Marshal() []byte
	Unmarshal([]byte) error
}

// Blog is the record for a blog.
// It lives at the address derived from its title and owner.
type Blog struct {
	Owner         Principal
	Title         string
	Description   string
	NumberOfPosts uint64
	CreatedAt     int64
	Bump          uint8
}

// Post is the record for a blog post.
// It lives at the address derived from the hash of its title and its owner,
// independent of the blog it belongs to.
type Post struct {
	Owner            Principal
	Blog             Address
	Title            string
	Content          string
	NumberOfComments uint64
	CreatedAt        int64
	UpdatedAt        int64
	Bump             uint8
}

// Comment is the record for a comment on a post.
// An author has at most one comment per post.
type Comment struct {
	CommentAuthor Principal
	BlogPost      Address
	Blog          Address
	Content       string
	CreatedAt     int64
	Bump          uint8
}

func (*Blog) Layout() Layout    { return LayoutBlog }
func (*Post) Layout() Layout    { return LayoutPost }
func (*Comment) Layout() Layout { return LayoutComment }

func (b *Blog) Marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, b.Owner[:])
	buf = appendStringField(buf, 2, b.Title)
	buf = appendStringField(buf, 3, b.Description)
	buf = appendVarintField(buf, 4, b.NumberOfPosts)
	buf = appendVarintField(buf, 5, uint64(b.CreatedAt))
	buf = appendVarintField(buf, 6, uint64(b.Bump))
	return buf
}

func (b *Blog) Unmarshal(buf []byte) error {
	*b = Blog{}
	return consumeFields(buf, func(num protowire.Number, v fieldValue) error {
		switch num {
		case 1:
			return v.principal(&b.Owner)
		case 2:
			b.Title = string(v.b)
		case 3:
			b.Description = string(v.b)
		case 4:
			b.NumberOfPosts = v.u
		case 5:
			b.CreatedAt = int64(v.u)
		case 6:
			b.Bump = uint8(v.u)
		}
		return nil
	})
}

func (p *Post) Marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, p.Owner[:])
	buf = appendBytesField(buf, 2, p.Blog[:])
	buf = appendStringField(buf, 3, p.Title)
	buf = appendStringField(buf, 4, p.Content)
	buf = appendVarintField(buf, 5, p.NumberOfComments)
	buf = appendVarintField(buf, 6, uint64(p.CreatedAt))
	buf = appendVarintField(buf, 7, uint64(p.UpdatedAt))
	buf = appendVarintField(buf, 8, uint64(p.Bump))
	return buf
}

func (p *Post) Unmarshal(buf []byte) error {
	*p = Post{}
	return consumeFields(buf, func(num protowire.Number, v fieldValue) error {
		switch num {
		case 1:
			return v.principal(&p.Owner)
		case 2:
			return v.address(&p.Blog)
		case 3:
			p.Title = string(v.b)
		case 4:
			p.Content = string(v.b)
		case 5:
			p.NumberOfComments = v.u
		case 6:
			p.CreatedAt = int64(v.u)
		case 7:
			p.UpdatedAt = int64(v.u)
		case 8:
			p.Bump = uint8(v.u)
		}
		return nil
	})
}

func (c *Comment) Marshal() []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, c.CommentAuthor[:])
	buf = appendBytesField(buf, 2, c.BlogPost[:])
	buf = appendBytesField(buf, 3, c.Blog[:])
	buf = appendStringField(buf, 4, c.Content)
	buf = appendVarintField(buf, 5, uint64(c.CreatedAt))
	buf = appendVarintField(buf, 6, uint64(c.Bump))
	return buf
}

func (c *Comment) Unmarshal(buf []byte) error {
	*c = Comment{}
	return consumeFields(buf, func(num protowire.Number, v fieldValue) error {
		switch num {
		case 1:
			return v.principal(&c.CommentAuthor)
		case 2:
			return v.address(&c.BlogPost)
		case 3:
			return v.address(&c.Blog)
		case 4:
			c.Content = string(v.b)
		case 5:
			c.CreatedAt = int64(v.u)
		case 6:
			c.Bump = uint8(v.u)
		}
		return nil
	})
}

// Decode unmarshals the slot into r,
// which must have the slot's layout.
func Decode(slot Slot, r Record) error {
	if slot.Layout != r.Layout() {
		return errors.Wrapf(ErrWrongLayout, "slot holds a %s, not a %s", slot.Layout, r.Layout())
	}
	return errors.Wrapf(r.Unmarshal(slot.Data), "decoding %s", slot.Layout)
}

// Encode produces the slot contents for r.
func Encode(r Record) Slot {
	return Slot{Layout: r.Layout(), Data: r.Marshal()}
}

func appendBytesField(buf []byte, num protowire.Number, v []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, v)
}

func appendStringField(buf []byte, num protowire.Number, v string) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, v)
}

func appendVarintField(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

// fieldValue is one decoded field: b for length-delimited fields, u for varints.
type fieldValue struct {
	b []byte
	u uint64
}

func (v fieldValue) principal(p *Principal) error {
	if len(v.b) != len(p) {
		return fmt.Errorf("principal field is %d bytes", len(v.b))
	}
	copy(p[:], v.b)
	return nil
}

func (v fieldValue) address(a *Address) error {
	if len(v.b) != len(a) {
		return fmt.Errorf("address field is %d bytes", len(v.b))
	}
	copy(a[:], v.b)
	return nil
}

// consumeFields calls f for each varint and length-delimited field in buf.
// Fields of other wire types are skipped.
func consumeFields(buf []byte, f func(protowire.Number, fieldValue) error) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return protowire.ParseError(n)
		}
		buf = buf[n:]

		var v fieldValue
		switch typ {
		case protowire.VarintType:
			v.u, n = protowire.ConsumeVarint(buf)
		case protowire.BytesType:
			v.b, n = protowire.ConsumeBytes(buf)
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return protowire.ParseError(n)
			}
			buf = buf[n:]
			continue
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		buf = buf[n:]

		if err := f(num, v); err != nil {
			return errors.Wrapf(err, "field %d", num)
		}
	}
	return nil
}
