// package repositories provides the SQLite persistence layer.
//
// It stores the managed playlist registry, the declared pins, a best-effort
// cache of track display names, and the history of sync runs. Repositories
// return taxonomy errors from [shared] so callers can branch on sentinel
// values instead of string matching.
package repositories
