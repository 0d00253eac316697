package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"payfriend/internal/models"
)

// Accepted string forms of reportDate, tried in order. Values without a
// zone are taken as UTC.
var reportDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// decodeCreditScore reads a credit score body whose reportDate may arrive
// either as a date string or as a native date (epoch milliseconds).
func decodeCreditScore(body []byte) (models.CreditScoreReport, error) {
	if !gjson.ValidBytes(body) {
		return models.CreditScoreReport{}, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return models.CreditScoreReport{}, errors.New("expected a JSON object")
	}

	var wire struct {
		Score    int    `json:"score"`
		Provider string `json:"provider"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return models.CreditScoreReport{}, err
	}

	reportDate, err := NormalizeReportDate(root.Get("reportDate"))
	if err != nil {
		return models.CreditScoreReport{}, err
	}

	return models.CreditScoreReport{
		Score:      wire.Score,
		Provider:   wire.Provider,
		ReportDate: reportDate,
	}, nil
}

// maxEpochMillis bounds numeric dates to integers a float64 holds exactly.
const maxEpochMillis = 1 << 53

// NormalizeReportDate renders a reportDate value in models.ISO8601. Dates
// outside years 0000-9999 are rejected.
func NormalizeReportDate(v gjson.Result) (string, error) {
	switch v.Type {
	case gjson.Number:
		if v.Num > maxEpochMillis || v.Num < -maxEpochMillis {
			return "", fmt.Errorf("reportDate %s is out of range", v.Raw)
		}
		return formatReportDate(time.UnixMilli(v.Int()))
	case gjson.String:
		t, err := parseReportDate(v.Str)
		if err != nil {
			return "", err
		}
		return formatReportDate(t)
	case gjson.Null:
		if !v.Exists() {
			return "", errors.New("reportDate is missing")
		}
		return "", errors.New("reportDate is null")
	default:
		return "", fmt.Errorf("reportDate has unsupported type %s", v.Type)
	}
}

func formatReportDate(t time.Time) (string, error) {
	t = t.UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return "", fmt.Errorf("reportDate year %d is out of range", y)
	}
	return t.Format(models.ISO8601), nil
}

func parseReportDate(s string) (time.Time, error) {
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("reportDate %q is not a recognized date", s)
}
