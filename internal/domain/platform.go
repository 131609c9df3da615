package domain

import (
	"net/url"
	"strings"
)

// Platform identifies the e-commerce site a product was imported from.
// It is a closed enumeration; anything unrecognized maps to PlatformGeneric
// so new sites degrade gracefully instead of producing typo'd free-form strings.
type Platform string

const (
	PlatformAmazon   Platform = "Amazon"
	PlatformFlipkart Platform = "Flipkart"
	PlatformMyntra   Platform = "Myntra"
	PlatformAjio     Platform = "Ajio"
	PlatformNykaa    Platform = "Nykaa"
	PlatformSnapdeal Platform = "Snapdeal"
	PlatformGeneric  Platform = "Generic"
)

// knownPlatforms maps lowercase names to their canonical value.
var knownPlatforms = map[string]Platform{
	"amazon":   PlatformAmazon,
	"flipkart": PlatformFlipkart,
	"myntra":   PlatformMyntra,
	"ajio":     PlatformAjio,
	"nykaa":    PlatformNykaa,
	"snapdeal": PlatformSnapdeal,
	"generic":  PlatformGeneric,
}

// ParsePlatform normalizes a free-form platform string to a known Platform.
// Unknown or empty values fall back to PlatformGeneric.
func ParsePlatform(s string) Platform {
	if p, ok := knownPlatforms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p
	}
	return PlatformGeneric
}

// DetectPlatform guesses the platform from a product URL's hostname.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformGeneric
	}
	host := strings.ToLower(u.Hostname())
	for name, p := range knownPlatforms {
		if name == "generic" {
			continue
		}
		if strings.Contains(host, name) {
			return p
		}
	}
	return PlatformGeneric
}

func (p Platform) String() string {
	return string(p)
}
