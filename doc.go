// Package ledger is a content-publishing ledger:
// blogs,
// posts,
// and comments,
// each stored as a separate entry in an entry store.
//
// There is no directory of entries.
// Instead every entry lives at an address derived from its identifying fields,
// so anyone who knows a blog's title and owner can compute where the blog is.
// A post's address comes from a hash of its title plus its owner
// (not the blog it belongs to,
// so an owner has at most one post of a given title across all their blogs).
// A comment's address comes from the post's address plus the comment's author,
// so an author has at most one live comment per post.
//
// Addresses are derived with sha256 over the seeds,
// a one-byte "bump,"
// and a program ID that namespaces the whole ledger.
// The bump is chosen so that the result is not a point on the ed25519 curve,
// which means no principal's key can ever coincide with an entry's address.
//
// Only authorized principals may change entries.
// A principal is an ed25519 public key,
// and a request is authorized by the set of principals that signed it.
// The blog owner creates, updates, and deletes posts;
// anyone may comment under their own name;
// and a comment may be deleted by its author or by the owner of the blog it appears in.
//
// Blogs count their posts and posts count their comments.
// Every operation stages all its changes,
// child entry and parent counter together,
// in a Tx that the Store applies all at once,
// so no reader ever sees a count that is off by one.
//
// Store implementations live in subpackages of store.
package ledger
