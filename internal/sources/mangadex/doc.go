// Package mangadex fetches chapters through the MangaDex JSON API instead of
// scraping HTML.
//
// Title URLs look like https://mangadex.org/title/{uuid}/{slug}. Listing
// walks the paginated chapter feed; fetching resolves the at-home server for
// a chapter and downloads its page files.
package mangadex
