// Package blacklist implements the shared email blacklist service.
//
// The service validates new entries, stamps them with a server-assigned ID
// and creation time, and answers lookups by exact email match. Entries are
// never updated or removed and duplicates for the same email are allowed.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package blacklist
