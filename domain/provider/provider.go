// Package provider defines check-in provider definitions and their registry.
package provider

import "strings"

// BypassWAFCookies is the bypass method name for providers behind a WAF
// that issues clearance cookies to a real browser.
const BypassWAFCookies = "waf_cookies"

// Provider describes how to talk to one check-in service.
type Provider struct {
	// Name is the registry key.
	Name string `json:"-" yaml:"-"`

	// Domain is the base URL, e.g. "https://anyrouter.top".
	Domain string `json:"domain" yaml:"domain"`

	LoginPath    string `json:"login_path" yaml:"login_path"`
	SignInPath   string `json:"sign_in_path" yaml:"sign_in_path"`
	UserInfoPath string `json:"user_info_path" yaml:"user_info_path"`

	// APIUserKey is the request header carrying the account's user identifier.
	APIUserKey string `json:"api_user_key" yaml:"api_user_key"`

	// WAFCookieNames lists the cookies a browser session must yield.
	WAFCookieNames []string `json:"waf_cookie_names" yaml:"waf_cookie_names"`

	// NeedsWAFCookies is true when WAF cookies must be acquired first.
	NeedsWAFCookies bool `json:"needs_waf_cookies" yaml:"needs_waf_cookies"`

	// NeedsManualCheckIn is false when fetching user info triggers the
	// check-in server side.
	NeedsManualCheckIn bool `json:"needs_manual_check_in" yaml:"needs_manual_check_in"`
}

// LoginURL returns the page visited to obtain WAF cookies.
func (p *Provider) LoginURL() string {
	return p.join(p.LoginPath)
}

// SignInURL returns the explicit check-in endpoint.
func (p *Provider) SignInURL() string {
	return p.join(p.SignInPath)
}

// UserInfoURL returns the account status endpoint.
func (p *Provider) UserInfoURL() string {
	return p.join(p.UserInfoPath)
}

func (p *Provider) join(path string) string {
	return strings.TrimRight(p.Domain, "/") + path
}

// Clone creates a deep copy of the provider.
func (p *Provider) Clone() *Provider {
	clone := *p
	if p.WAFCookieNames != nil {
		clone.WAFCookieNames = append([]string(nil), p.WAFCookieNames...)
	}
	return &clone
}
