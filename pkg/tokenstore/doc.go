// Package tokenstore persists OAuth1 and OAuth2 credentials between runs.
//
// Records are keyed by Key(endpoint, clientID) and kept in memory; in file
// mode each record is also written as JSON to the storage directory
// (default ~/.config/courier/tokens) with owner-only permissions.
package tokenstore
