package web

// Profile describes how to scrape one site family.
type Profile struct {
	// Name identifies the profile in logs and reports.
	Name string
	// Hosts are the domains the profile claims, subdomains included.
	Hosts []string
	// ChapterLink selects anchors on the title page that lead to chapters.
	// The chapter ordinal is parsed from the anchor text, falling back to
	// its href.
	ChapterLink string
	// PageImage selects the reader images on a chapter page.
	PageImage string
	// ImageAttr is the attribute carrying the image URL. Lazy-loading sites
	// use data-src; it falls back to src when empty or absent.
	ImageAttr string
}

// BuiltinProfiles returns the site families supported out of the box.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Name:        "weebcentral",
			Hosts:       []string{"weebcentral.com"},
			ChapterLink: "a[href*='/chapters/']",
			PageImage:   "main img[src*='/manga/']",
			ImageAttr:   "src",
		},
		{
			Name:        "mangakakalot",
			Hosts:       []string{"mangakakalot.gg", "natomanga.com", "nelomanga.com"},
			ChapterLink: "div.chapter-list a, ul.row-content-chapter a",
			PageImage:   "div.container-chapter-reader img",
			ImageAttr:   "data-src",
		},
	}
}

// GenericProfile is the permissive fallback used for hosts no profile
// claims. It relies on the widespread chapter-in-href convention.
func GenericProfile() Profile {
	return Profile{
		Name:        "generic-web",
		ChapterLink: "a[href*='chapter']",
		PageImage:   "img[src*='.jpg'], img[src*='.png'], img[src*='.webp'], img[data-src]",
		ImageAttr:   "data-src",
	}
}
