// Package assemble turns downloaded chapter pages into a single document.
//
// Two writers exist: PDF keeps each page at its native aspect ratio on its
// own page, EPUB wraps the images for e-readers. WebP pages are transcoded to
// JPEG first since neither container accepts them directly.
package assemble
