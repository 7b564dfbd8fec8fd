// Package web scrapes chapter listings and page images from static HTML
// sites.
//
// Each supported site is described by a Profile naming the CSS selectors for
// chapter links and reader images. One Site value serves every host its
// profile lists, so adding a site is a matter of writing a profile, not an
// adapter.
package web
