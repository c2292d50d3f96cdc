package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/probe"
	"golang.org/x/net/html"
)

var (
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	rightClickRe = regexp.MustCompile(`(?i)contextmenu|event\.button\s*==+\s*2`)
	popupRe      = regexp.MustCompile(`(?i)window\.open\s*\(|showModalDialog\s*\(`)
)

// pageSignals are the content observations of one fetched page.
type pageSignals struct {
	Links              int
	ExternalLinks      int
	PasswordForm       bool
	ExternalFormAction bool
	Iframe             bool
	FaviconExternal    bool
	ObfuscatedScripts  int
	RedirectedOffHost  bool
	RightClickDisabled bool
	PopupWindow        bool
	EmailInPage        bool
}

func (s pageSignals) externalRatio() float64 {
	if s.Links == 0 {
		return 0
	}
	return float64(s.ExternalLinks) / float64(s.Links)
}

// resolveRef resolves an attribute value against base, skipping fragments
// and non-navigational schemes.
func resolveRef(base *url.URL, raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if raw == "" || strings.HasPrefix(raw, "#") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return nil, false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	return base.ResolveReference(ref), true
}

func offSite(ref *url.URL, host string) bool {
	h := ref.Hostname()
	return h != "" && !common.SameSite(strings.ToLower(h), host)
}

// analyzePage walks the parsed DOM of a fetched page. host is the analyzed
// URL's hostname; links are judged relative to it.
func analyzePage(page *probe.Page, host string) (pageSignals, error) {
	var s pageSignals

	root, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return s, fmt.Errorf("html parse: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	base := page.FinalURL
	if base == nil {
		base = page.RequestURL
	}
	if base == nil {
		return s, fmt.Errorf("page has no URL")
	}
	host = strings.ToLower(host)

	s.RedirectedOffHost = offSite(base, host)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), "mailto:") {
			s.EmailInPage = true
		}
		ref, ok := resolveRef(base, href)
		if !ok {
			return
		}
		s.Links++
		if offSite(ref, host) {
			s.ExternalLinks++
		}
	})

	doc.Find("input").Each(func(_ int, in *goquery.Selection) {
		if typ, _ := in.Attr("type"); strings.EqualFold(strings.TrimSpace(typ), "password") {
			s.PasswordForm = true
		}
	})

	doc.Find("form").Each(func(_ int, f *goquery.Selection) {
		action, _ := f.Attr("action")
		if ref, ok := resolveRef(base, action); ok && offSite(ref, host) {
			s.ExternalFormAction = true
		}
	})

	s.Iframe = doc.Find("iframe, frame").Length() > 0

	doc.Find("link[rel][href]").Each(func(_ int, l *goquery.Selection) {
		rel, _ := l.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "icon") {
			return
		}
		href, _ := l.Attr("href")
		if ref, ok := resolveRef(base, href); ok && offSite(ref, host) {
			s.FaviconExternal = true
		}
	})

	var scripts strings.Builder
	doc.Find("script").Each(func(_ int, sc *goquery.Selection) {
		if _, external := sc.Attr("src"); external {
			return
		}
		body := sc.Text()
		if common.LooksLikeObfuscatedJS(body) {
			s.ObfuscatedScripts++
		}
		scripts.WriteString(body)
		scripts.WriteByte('\n')
	})
	doc.Find("[oncontextmenu]").Each(func(_ int, el *goquery.Selection) {
		s.RightClickDisabled = true
	})
	doc.Find("[onclick]").Each(func(_ int, el *goquery.Selection) {
		if v, _ := el.Attr("onclick"); popupRe.MatchString(v) {
			s.PopupWindow = true
		}
	})

	js := scripts.String()
	s.RightClickDisabled = s.RightClickDisabled || rightClickRe.MatchString(js)
	s.PopupWindow = s.PopupWindow || popupRe.MatchString(js)

	doc.Find("script, style").Remove()
	s.EmailInPage = s.EmailInPage || emailRe.MatchString(doc.Text())

	return s, nil
}

func (e *Extractor) fillContent(b *features.Builder, s pageSignals) {
	ratio := s.externalRatio()
	verdict := "ok"
	if ratio > 0.5 {
		verdict = "suspicious"
	}
	b.Set(features.ExternalLinkRatio, ratio,
		fmt.Sprintf("%d of %d links point off-site (%.2f) -> %s", s.ExternalLinks, s.Links, ratio, verdict))
	b.Flag(features.PasswordForm, s.PasswordForm, "page asks for a password", true)
	b.Flag(features.ExternalFormAction, s.ExternalFormAction, "form submits to another site", true)
	b.Flag(features.IframePresent, s.Iframe, "page embeds iframes", true)
	b.Flag(features.FaviconExternal, s.FaviconExternal, "favicon loaded from another site", true)
	b.Set(features.ObfuscatedScriptCount, float64(s.ObfuscatedScripts), countNote(s.ObfuscatedScripts, "obfuscated inline scripts", 1))
	b.Flag(features.RedirectedOffHost, s.RedirectedOffHost, "fetch redirected to another site", true)
	b.Flag(features.RightClickDisabled, s.RightClickDisabled, "page disables right click", true)
	b.Flag(features.PopupWindow, s.PopupWindow, "page opens popup windows", true)
	b.Flag(features.EmailInPage, s.EmailInPage, "page shows an email address", true)
}
