// Package sources defines the contract chapter providers implement and the
// shared plumbing they build on.
//
// A Source lists the chapter ordinals available at a title URL and fetches
// page images for one chapter. Adapters live in subpackages: web scrapes
// static HTML, headless drives a browser for script-rendered sites, and
// mangadex speaks the MangaDex API. The Registry maps a title URL to the
// adapter responsible for its host.
//
// Listing failures surface as ErrUnavailable so a check cycle can treat an
// unreachable source as simply listing nothing.
package sources
