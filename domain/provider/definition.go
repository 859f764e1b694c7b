package provider

import (
	"errors"
	"fmt"
)

// Default endpoint layout shared by new-api style providers.
const (
	DefaultLoginPath    = "/login"
	DefaultSignInPath   = "/api/user/sign_in"
	DefaultUserInfoPath = "/api/user/self"
	DefaultAPIUserKey   = "new-api-user"
)

// Errors returned when a provider definition cannot be built.
var (
	ErrMissingDomain     = errors.New("domain is required")
	ErrMissingWAFCookies = errors.New("waf_cookie_names is required when WAF cookies are needed")
)

// Definition is the configured, partially specified form of a Provider.
// Nil fields fall back to the defaults above.
type Definition struct {
	Domain         string   `json:"domain" yaml:"domain"`
	LoginPath      *string  `json:"login_path,omitempty" yaml:"login_path,omitempty"`
	SignInPath     *string  `json:"sign_in_path,omitempty" yaml:"sign_in_path,omitempty"`
	UserInfoPath   *string  `json:"user_info_path,omitempty" yaml:"user_info_path,omitempty"`
	APIUserKey     *string  `json:"api_user_key,omitempty" yaml:"api_user_key,omitempty"`
	BypassMethod   string   `json:"bypass_method,omitempty" yaml:"bypass_method,omitempty"`
	WAFCookieNames []string `json:"waf_cookie_names,omitempty" yaml:"waf_cookie_names,omitempty"`

	// NeedsWAFCookies overrides the value derived from BypassMethod.
	NeedsWAFCookies *bool `json:"needs_waf_cookies,omitempty" yaml:"needs_waf_cookies,omitempty"`

	// NeedsManualCheckIn overrides the value derived from SignInPath.
	// An empty SignInPath means check-in happens on the user info request.
	NeedsManualCheckIn *bool `json:"needs_manual_check_in,omitempty" yaml:"needs_manual_check_in,omitempty"`
}

// Build resolves defaults and validates the definition.
func (d *Definition) Build(name string) (*Provider, error) {
	if d.Domain == "" {
		return nil, fmt.Errorf("provider %q: %w", name, ErrMissingDomain)
	}

	p := &Provider{
		Name:           name,
		Domain:         d.Domain,
		LoginPath:      valueOr(d.LoginPath, DefaultLoginPath),
		SignInPath:     valueOr(d.SignInPath, DefaultSignInPath),
		UserInfoPath:   valueOr(d.UserInfoPath, DefaultUserInfoPath),
		APIUserKey:     valueOr(d.APIUserKey, DefaultAPIUserKey),
		WAFCookieNames: append([]string(nil), d.WAFCookieNames...),
	}

	p.NeedsWAFCookies = d.BypassMethod == BypassWAFCookies
	if d.NeedsWAFCookies != nil {
		p.NeedsWAFCookies = *d.NeedsWAFCookies
	}

	p.NeedsManualCheckIn = p.SignInPath != ""
	if d.NeedsManualCheckIn != nil {
		p.NeedsManualCheckIn = *d.NeedsManualCheckIn
	}

	if p.NeedsWAFCookies && len(p.WAFCookieNames) == 0 {
		return nil, fmt.Errorf("provider %q: %w", name, ErrMissingWAFCookies)
	}

	return p, nil
}

func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
