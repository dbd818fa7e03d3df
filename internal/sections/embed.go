package sections

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// iconCache memoizes icon bytes within a single EmbedIconsAndStyles
// call (spec §4.4 "All icon data is cached in-memory within a single
// call"), keyed by section/icon name. A fresh cache is constructed per
// call rather than held process-wide, matching the original's
// call-scoped memoization (SPEC_FULL "Icon cache").
type iconCache map[string][]byte

func (c iconCache) get(name string, raw []byte) []byte {
	if b, ok := c[name]; ok {
		return b
	}
	c[name] = raw
	return raw
}

// sectionIcons maps each fixed section key to a minimal inline SVG
// icon. Unrecognized and custom keys fall back to genericIconSVG.
var sectionIcons = map[string]string{
	"trending_unread":  `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><path d="M1 14 6 8l3 3 6-7"/></svg>`,
	"long_read":        `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><rect x="2" y="2" width="12" height="12"/></svg>`,
	"classifier_match": `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><circle cx="8" cy="8" r="6"/></svg>`,
	"follow_up":        `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><path d="M2 8h12M8 2v12"/></svg>`,
	"trending_global":  `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><path d="M1 14 6 8l3 3 6-7"/></svg>`,
	"duplicates":       `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><rect x="1" y="1" width="10" height="10"/><rect x="5" y="5" width="10" height="10"/></svg>`,
	"quick_catchup":    `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><circle cx="8" cy="8" r="7"/></svg>`,
	"emerging_topics":  `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><path d="M8 1v14M1 8h14"/></svg>`,
	"contrarian_views": `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><path d="M3 3 13 13M13 3 3 13"/></svg>`,
}

const genericIconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><circle cx="8" cy="8" r="7"/></svg>`

const thumbsUpSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" fill="#2e7d32"><path d="M2 8h3v7H2zM6 8l2-6a1 1 0 0 1 1 1v3h4a1 1 0 0 1 1 1l-1 6a1 1 0 0 1-1 1H6z"/></svg>`

func dataURI(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

var h3OpenRe = regexp.MustCompile(`(?is)<h3([^>]*)>`)
var ulOpenRe = regexp.MustCompile(`(?is)<ul(\s[^>]*)?>`)
var liOpenRe = regexp.MustCompile(`(?is)<li(\s[^>]*)?>`)
var pOpenRe = regexp.MustCompile(`(?is)<p(\s[^>]*)?>`)
var anchorRe = regexp.MustCompile(`(?is)<a\b([^>]*)data-story-hash\s*=\s*"([^"]*)"([^>]*)>`)
var pillSpanRe = regexp.MustCompile(`(?is)<span class="NB-classifier[^"]*"([^>]*)>`)
var pillLabelRe = regexp.MustCompile(`(?is)<label(\s[^>]*)?>`)
var pillBRe = regexp.MustCompile(`(?is)<b(\s[^>]*)?>`)
var pillInnerAnchorRe = regexp.MustCompile(`(?is)(<span class="NB-classifier[^"]*"[^>]*>.*?)<a\b([^>]*)>(.*?</a>)`)
var iconPlaceholderRe = regexp.MustCompile(`(?is)<div class="NB-classifier-icon-like"[^>]*>\s*</div>`)
var outerDivOpenRe = regexp.MustCompile(`(?is)^\s*<div class="` + wrapperClass + `"([^>]*)>`)

const outerStyle = `font-family:-apple-system,Helvetica,Arial,sans-serif;font-size:15px;line-height:1.5;color:#1a1a1a`
const ulStyle = `margin:0 0 12px 0;padding-left:20px`
const liStyle = `margin:0 0 6px 0`
const pStyle = `margin:0 0 12px 0`
const h3Style = `margin:20px 0 8px 0;font-size:17px;font-weight:600`
const pillStyle = `display:inline-block;background:#eef3fb;border-radius:10px;padding:2px 8px;margin-left:6px;font-size:12px`
const pillLabelStyle = `color:#5b6b82;font-weight:600`
const pillBStyle = `color:#5b6b82`
const pillValueStyle = `color:#1a1a1a`

// EmbedIconsAndStyles applies the Section Processor's email-safe
// rewriting pass (spec §4.4 "Embed icons and inline styles"): wraps
// the outer div in an inline style, styles block elements inline,
// injects a favicon before every story anchor and fills in its href,
// converts favicon-bearing <p> items into a two-column <table>,
// styles classifier pills, replaces the icon placeholder with a
// recolored thumbs-up data URI, and prefixes each <h3> with its
// section icon as a data URI.
func EmbedIconsAndStyles(html, siteBaseURL string, sectionKeys map[string]string) string {
	cache := make(iconCache)

	html = outerDivOpenRe.ReplaceAllString(html, fmt.Sprintf(`<div class="%s" style="%s"%s>`, wrapperClass, outerStyle, "$1"))
	html = ulOpenRe.ReplaceAllString(html, fmt.Sprintf(`<ul style="%s">`, ulStyle))
	html = liOpenRe.ReplaceAllString(html, fmt.Sprintf(`<li style="%s">`, liStyle))
	html = pOpenRe.ReplaceAllString(html, fmt.Sprintf(`<p style="%s">`, pStyle))

	html = h3OpenRe.ReplaceAllStringFunc(html, func(tag string) string {
		m := h3OpenRe.FindStringSubmatch(tag)
		attrs := ""
		if len(m) > 1 {
			attrs = m[1]
		}
		key := ""
		if sm := dataSectionRe.FindStringSubmatch(attrs); sm != nil {
			key = NormalizeSectionKey(sm[1])
		}
		svg := sectionIcons[key]
		if svg == "" {
			svg = genericIconSVG
		}
		icon := cache.get("h3:"+key, []byte(dataURI(svg)))
		return fmt.Sprintf(`<h3%s style="%s"><img src="%s" width="16" height="16" alt="" style="vertical-align:middle;margin-right:6px"/>`, attrs, h3Style, string(icon))
	})

	html = anchorRe.ReplaceAllStringFunc(html, func(tag string) string {
		m := anchorRe.FindStringSubmatch(tag)
		before, hash, after := m[1], m[2], m[3]
		href := fmt.Sprintf("%s/briefing?story=%s", strings.TrimRight(siteBaseURL, "/"), hash)
		rebuilt := before + after
		if !strings.Contains(rebuilt, "href=") {
			rebuilt += fmt.Sprintf(` href="%s"`, href)
		}
		favicon := cache.get("favicon", []byte(faviconDataURI(siteBaseURL)))
		return fmt.Sprintf(`<img src="%s" width="14" height="14" alt="" style="vertical-align:middle;margin-right:4px"/><a%s data-story-hash="%s">`, string(favicon), rebuilt, hash)
	})

	html = wrapFaviconItemsAsTables(html)

	html = pillSpanRe.ReplaceAllString(html, fmt.Sprintf(`<span class="NB-classifier-pill" style="%s"$1>`, pillStyle))
	html = pillLabelRe.ReplaceAllString(html, fmt.Sprintf(`<label style="%s">`, pillLabelStyle))
	html = pillBRe.ReplaceAllString(html, fmt.Sprintf(`<b style="%s">`, pillBStyle))
	html = pillInnerAnchorRe.ReplaceAllString(html, `$1<a$2 style="color:#ffffff;text-decoration:none">$3`)
	_ = pillValueStyle

	html = iconPlaceholderRe.ReplaceAllStringFunc(html, func(string) string {
		thumb := cache.get("thumbs-up", []byte(dataURI(thumbsUpSVG)))
		return fmt.Sprintf(`<img src="%s" width="14" height="14" alt="thumbs up"/>`, string(thumb))
	})

	return html
}

var favItemPRe = regexp.MustCompile(`(?is)<p style="([^"]*)">\s*(<img[^>]*>)\s*(<a[^>]*data-story-hash.*?)</p>`)
var favItemLiRe = regexp.MustCompile(`(?is)<li style="([^"]*)">\s*(<img[^>]*>)\s*(<a[^>]*data-story-hash.*?)</li>`)

// wrapFaviconItemsAsTables converts <p>/<li> items that carry a
// favicon image immediately before a story anchor into a two-column
// <table> layout, since tables may not nest inside <p> in HTML email
// clients — <p> is converted to <div> first (spec §4.4).
func wrapFaviconItemsAsTables(html string) string {
	html = favItemPRe.ReplaceAllString(html, faviconTableHTML("div"))
	html = favItemLiRe.ReplaceAllString(html, faviconTableHTML("li"))
	return html
}

func faviconTableHTML(outerTag string) string {
	return "<" + outerTag + ` style="$1">` +
		`<table role="presentation" cellpadding="0" cellspacing="0" style="width:100%"><tr>` +
		`<td style="width:20px;vertical-align:top">$2</td>` +
		`<td style="vertical-align:top">$3</td>` +
		`</tr></table></` + outerTag + ">"
}

const faviconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" fill="#5b6b82"><circle cx="8" cy="8" r="7"/></svg>`

// faviconDataURI stands in for a per-site favicon fetch: the original
// system resolves a favicon per story's feed host; this repository has
// no favicon fetch service to call (out of scope), so a single neutral
// glyph is embedded and the story link still carries the real href.
func faviconDataURI(siteBaseURL string) string {
	return dataURI(faviconSVG)
}
