package model

import "strings"

// ProviderLauncher is the tag set by a load-balanced launcher in front of
// multiple tenants. When it appears, the payload's customer field is the
// effective provider.
const ProviderLauncher = "bn_launcher"

// AuthInfo is the normalized info block of an authentication gateway
// response. Fields are provider specific; absent ones decode to "".
type AuthInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Image       string `json:"image"`
	Customer    string `json:"customer"`
}

// AuthPayload is the input contract from the authentication gateway.
type AuthPayload struct {
	Provider string   `json:"provider"`
	UID      string   `json:"uid"`
	Info     AuthInfo `json:"info"`
}

// providerRules supplies the per-provider field extraction strategies.
// A nil slot falls back to the default rule.
type providerRules struct {
	name     func(AuthInfo) string
	username func(AuthInfo) string
	image    func(AuthInfo) string
}

var defaultRules = providerRules{
	name:     func(i AuthInfo) string { return i.Name },
	username: func(i AuthInfo) string { return i.Nickname },
	image:    func(i AuthInfo) string { return i.Image },
}

var rulesByProvider = map[string]providerRules{
	"google": {
		username: func(i AuthInfo) string {
			local, _, _ := strings.Cut(i.Email, "@")
			return local
		},
	},
	"twitter": {
		image: func(i AuthInfo) string {
			img := strings.Replace(i.Image, "http://", "https://", 1)
			return strings.ReplaceAll(img, "_normal", "")
		},
	},
	"microsoft_office365": {
		name:  func(i AuthInfo) string { return i.DisplayName },
		image: func(AuthInfo) string { return "" },
	},
	ProviderLauncher: {
		username: func(i AuthInfo) string { return i.Username },
	},
}

func rulesFor(provider string) providerRules {
	rules := defaultRules
	override, ok := rulesByProvider[provider]
	if !ok {
		return rules
	}
	if override.name != nil {
		rules.name = override.name
	}
	if override.username != nil {
		rules.username = override.username
	}
	if override.image != nil {
		rules.image = override.image
	}
	return rules
}

// EffectiveProvider resolves the provider used for account lookup and
// storage. The launcher sentinel is replaced by the tenant name it fronts.
func (p AuthPayload) EffectiveProvider() string {
	if p.Provider == ProviderLauncher {
		return p.Info.Customer
	}
	return p.Provider
}

// Extraction rules are keyed by the raw provider tag, not the effective one.

func (p AuthPayload) AuthName() string {
	return rulesFor(p.Provider).name(p.Info)
}

func (p AuthPayload) AuthUsername() string {
	return rulesFor(p.Provider).username(p.Info)
}

func (p AuthPayload) AuthEmail() string {
	return p.Info.Email
}

func (p AuthPayload) AuthImage() string {
	return rulesFor(p.Provider).image(p.Info)
}
