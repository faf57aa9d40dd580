// Package validate replays stored training queries through a search
// function and measures how often the expected order code comes back.
//
// It reports top-1 and top-K accuracy with progress tracking, which is
// useful for checking a freshly trained model against its own training
// data before putting it in front of users.
package validate
