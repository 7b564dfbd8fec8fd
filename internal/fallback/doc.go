// Package fallback decides which source, if any, a chapter should be fetched
// from during a check cycle.
//
// The primary source always wins when it lists a chapter. A chapter seen only
// on backups opens a waiting window; once the title's fallback delay elapses
// the window's first-seen backup is used. The engine owns window transitions
// in the library store so callers only act on the returned decision.
package fallback
