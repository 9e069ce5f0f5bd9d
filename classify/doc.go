// Package classify maps raw dependency failures to a small failure taxonomy.
//
// The classifier is a pure function over an already-extracted observation
// (HTTP status, parsed error-body fields, raw Retry-After header). It does no
// I/O and holds no state; the HTTP-calling collaborator builds a RawFailure
// and the retry layer decides what to do with the resulting Classified value.
package classify
