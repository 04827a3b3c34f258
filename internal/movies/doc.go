// Package movies holds the validated movie records consumed by the
// availability engine.
//
// The scraped list (latest.json) arrives as loosely shaped JSON objects. New
// checks each one before it reaches the resolver so malformed upstream data is
// reported once, at load time, instead of surfacing as odd cache keys later.
package movies
