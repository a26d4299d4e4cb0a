package parser

import (
	"strings"
)

// DetectAntiBot returns a human-readable reason when the page looks like a
// bot challenge or block page, or "" when it does not.
func DetectAntiBot(html []byte, title string) string {
	body := string(html)
	lowerTitle := strings.ToLower(title)

	switch {
	case strings.Contains(body, "cf-browser-verification"),
		strings.Contains(body, "Cloudflare") && strings.Contains(body, "challenge-platform"),
		strings.Contains(body, "Cloudflare Ray ID"),
		strings.Contains(body, "cf-ray"):
		return "Cloudflare protection detected"
	case strings.Contains(body, "g-recaptcha"), strings.Contains(body, "recaptcha"):
		return "reCAPTCHA challenge detected"
	case strings.Contains(body, "h-captcha"), strings.Contains(body, "hcaptcha"):
		return "hCaptcha challenge detected"
	case strings.Contains(body, "PerimeterX"), strings.Contains(body, "px-captcha"):
		return "PerimeterX protection detected"
	case strings.Contains(body, "datadome"), strings.Contains(body, "DataDome"):
		return "DataDome protection detected"
	case strings.Contains(body, "akamai") && (strings.Contains(body, "bot") || strings.Contains(body, "challenge")):
		return "Akamai bot protection detected"
	case strings.Contains(lowerTitle, "access denied"),
		strings.Contains(lowerTitle, "blocked"),
		strings.Contains(lowerTitle, "forbidden"),
		strings.Contains(lowerTitle, "captcha"):
		return "Access blocked: " + title
	case strings.Contains(body, "Just a moment"), strings.Contains(body, "Checking your browser"):
		return "Browser check interstitial detected"
	}
	return ""
}
