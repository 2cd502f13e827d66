package validation

import (
	"net/url"
	"strings"

	omrerrors "go-omr-engine/internal/errors"
)

// URLValidator vets remote sheet locations before any fetch happens.
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a URL validator with default settings.
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options.
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateSheetURL checks whether the URL is acceptable as a sheet source.
func (v *URLValidator) ValidateSheetURL(sheetURL string) error {
	if strings.TrimSpace(sheetURL) == "" {
		return omrerrors.NewUnreadableImageError("sheet URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(sheetURL)
	if err != nil {
		return omrerrors.NewUnreadableImageError("invalid sheet URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return omrerrors.NewUnreadableImageError("sheet URL scheme not allowed: "+parsedURL.Scheme, nil)
	}

	if parsedURL.Host == "" {
		return omrerrors.NewUnreadableImageError("sheet URL must have a host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return omrerrors.NewUnreadableImageError("sheet URL host not allowed: "+parsedURL.Host, nil)
	}

	return nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set.
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
