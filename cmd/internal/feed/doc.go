// Package feed owns posts, comments, likes, and bookmarks.
//
// Likes and bookmarks are membership rows keyed on the (post, user) pair;
// the uniqueness constraint, not application logic, is what makes repeated
// registration idempotent under concurrent retries. The post record carries
// denormalized like and comment counters kept in sync by the same writes
// that create the membership rows.
package feed
