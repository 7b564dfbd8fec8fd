// Package headless serves script-rendered sites by driving a Chromium
// instance through go-rod.
//
// The Site adapter navigates with a real browser, parses the rendered HTML
// with the same profiles the web package uses, and downloads page images over
// plain HTTP. It implements sources.SessionCycler so long check runs can tear
// the browser down and relaunch it between chapters.
package headless
