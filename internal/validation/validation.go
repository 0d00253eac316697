package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"payfriend/internal/models"
)

const (
	minCreditScore = 0
	maxCreditScore = 999
	maxTokenLength = 4096
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func ValidateOffer(offer models.Offer) error {
	if strings.TrimSpace(offer.OfferID) == "" {
		return &ValidationError{Field: "offerId", Message: "is required"}
	}

	if strings.TrimSpace(offer.OfferType) == "" {
		return &ValidationError{Field: "offerType", Message: "is required"}
	}

	return nil
}

func ValidateOffers(offers []models.Offer) error {
	seen := make(map[string]bool, len(offers))
	for i, offer := range offers {
		if err := ValidateOffer(offer); err != nil {
			return indexed("offers", i, err)
		}
		if seen[offer.OfferID] {
			return &ValidationError{
				Field:   "offers",
				Message: fmt.Sprintf("duplicate offerId: %s", offer.OfferID),
			}
		}
		seen[offer.OfferID] = true
	}
	return nil
}

func ValidateMiniApp(app models.MiniApp) error {
	if strings.TrimSpace(app.AppID) == "" {
		return &ValidationError{Field: "appId", Message: "is required"}
	}

	if strings.TrimSpace(app.LaunchURL) == "" {
		return &ValidationError{Field: "launchUrl", Message: "is required"}
	}

	// Launch targets are opaque, but must at least parse as a URI reference.
	if _, err := url.Parse(app.LaunchURL); err != nil {
		return &ValidationError{Field: "launchUrl", Message: "must be a valid URI"}
	}

	return nil
}

func ValidateMiniApps(apps []models.MiniApp) error {
	seen := make(map[string]bool, len(apps))
	for i, app := range apps {
		if err := ValidateMiniApp(app); err != nil {
			return indexed("miniApps", i, err)
		}
		if seen[app.AppID] {
			return &ValidationError{
				Field:   "miniApps",
				Message: fmt.Sprintf("duplicate appId: %s", app.AppID),
			}
		}
		seen[app.AppID] = true
	}
	return nil
}

func ValidateCreditScoreReport(report models.CreditScoreReport) error {
	if report.Score < minCreditScore || report.Score > maxCreditScore {
		return &ValidationError{
			Field:   "score",
			Message: fmt.Sprintf("must be between %d and %d", minCreditScore, maxCreditScore),
		}
	}

	if strings.TrimSpace(report.Provider) == "" {
		return &ValidationError{Field: "provider", Message: "is required"}
	}

	if report.ReportDate == "" {
		return &ValidationError{Field: "reportDate", Message: "is required"}
	}

	return nil
}

func ValidateStartSession(req models.StartSessionRequest) error {
	if req.UserID == "" {
		return &ValidationError{Field: "userId", Message: "is required"}
	}

	if req.AccessToken == "" {
		return &ValidationError{Field: "accessToken", Message: "is required"}
	}

	if len(req.AccessToken) > maxTokenLength {
		return &ValidationError{Field: "accessToken", Message: "is too long"}
	}

	if strings.ContainsAny(req.AccessToken, " \t\r\n") {
		return &ValidationError{Field: "accessToken", Message: "must not contain whitespace"}
	}

	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func indexed(field string, i int, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{
			Field:   fmt.Sprintf("%s[%d].%s", field, i, ve.Field),
			Message: ve.Message,
		}
	}
	return err
}
