// Package history persists recording sessions to SQLite. A session spans one
// arm/disarm cycle; each recording row tracks one stream's output within that
// session together with how it ended.
package history
