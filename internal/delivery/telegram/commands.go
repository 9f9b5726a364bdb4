package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/usecase"
	"github.com/shopspring/decimal"
)

const HelpText = `Commands:
/start - register this chat
/help - show this help
/add_alert key=value ... - create a saved search
/alerts - list your alerts
/enable <alert_id>
/disable <alert_id>
/delete <alert_id>
/notifications [count] - recent matches
/read <notification_id> - mark a match as read
/mute, /unmute - pause or resume delivery

Alert keys (all optional except name):
name="Bole flats"  freq=instant|daily|weekly
type=apartment,villa  listing=sale|rent  city="Addis Ababa"
min_price=1000000  max_price=3000000
beds=2  baths=1  area=80
near=<lat>,<lon>,<radius_km>
Example:
/add_alert name="Bole 2BR" type=apartment max_price=3000000 beds=2 near=9.0222,38.7468,5 freq=instant
`

const (
	defaultNotificationLimit = 10
	maxNotificationLimit     = 50
)

var ErrInvalidArguments = errors.New("invalid arguments")

func ParseAlertID(args string) (uint, error) {
	idStr := strings.TrimPrefix(strings.TrimSpace(args), "#")
	if idStr == "" {
		return 0, ErrInvalidArguments
	}
	value, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, ErrInvalidArguments
	}
	return uint(value), nil
}

func ParseLimit(args string) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return defaultNotificationLimit, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil || n <= 0 {
		return 0, ErrInvalidArguments
	}
	if n > maxNotificationLimit {
		n = maxNotificationLimit
	}
	return n, nil
}

// ParseAddAlertArgs reads key=value pairs. Values may be double-quoted to include spaces.
func ParseAddAlertArgs(args string) (usecase.AlertInput, error) {
	var input usecase.AlertInput

	tokens, err := splitArgs(args)
	if err != nil {
		return input, err
	}
	if len(tokens) == 0 {
		return input, ErrInvalidArguments
	}

	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok || value == "" {
			return input, fmt.Errorf("%w: expected key=value, got %q", ErrInvalidArguments, token)
		}
		c := &input.Criteria
		switch strings.ToLower(key) {
		case "name":
			input.Name = value
		case "freq", "frequency":
			input.Frequency = domain.Frequency(value)
		case "type":
			c.PropertyTypes = splitList(value)
		case "listing":
			c.ListingTypes = splitList(value)
		case "city":
			c.City = value
		case "min_price":
			c.MinPrice, err = parseDecimal(key, value)
		case "max_price":
			c.MaxPrice, err = parseDecimal(key, value)
		case "beds":
			c.MinBedrooms, err = parseInt(key, value)
		case "baths":
			c.MinBathrooms, err = parseInt(key, value)
		case "area":
			c.MinAreaSqm, err = parseFloat(key, value)
		case "near":
			c.Location, err = parseNear(value)
		default:
			return input, fmt.Errorf("%w: unknown key %q", ErrInvalidArguments, key)
		}
		if err != nil {
			return input, err
		}
	}

	if strings.TrimSpace(input.Name) == "" {
		return input, fmt.Errorf("%w: name is required", ErrInvalidArguments)
	}
	return input, nil
}

func splitArgs(args string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range args {
		switch {
		case r == '"':
			quoted = !quoted
		case (r == ' ' || r == '\t' || r == '\n') && !quoted:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote", ErrInvalidArguments)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDecimal(key, value string) (*decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(value, "_", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidArguments, key)
	}
	return &d, nil
}

func parseInt(key, value string) (*int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a whole number", ErrInvalidArguments, key)
	}
	return &n, nil
}

func parseFloat(key, value string) (*float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidArguments, key)
	}
	return &f, nil
}

func parseNear(value string) (*domain.Location, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: near=<lat>,<lon>,<radius_km>", ErrInvalidArguments)
	}
	var coords [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: near=<lat>,<lon>,<radius_km>", ErrInvalidArguments)
		}
		coords[i] = f
	}
	return &domain.Location{Latitude: coords[0], Longitude: coords[1], RadiusKm: coords[2]}, nil
}

// FormatAlert renders one line of the /alerts listing.
func FormatAlert(alert domain.Alert) string {
	status := "disabled"
	if alert.Enabled {
		status = "enabled"
	}
	if alert.NeedsReview {
		status = "needs review"
	}

	var parts []string
	c := alert.Criteria
	if len(c.PropertyTypes) > 0 {
		parts = append(parts, strings.Join(c.PropertyTypes, "/"))
	}
	if len(c.ListingTypes) > 0 {
		parts = append(parts, "for "+strings.Join(c.ListingTypes, "/"))
	}
	if c.City != "" {
		parts = append(parts, "in "+c.City)
	}
	switch {
	case c.MinPrice != nil && c.MaxPrice != nil:
		parts = append(parts, c.MinPrice.String()+"-"+c.MaxPrice.String())
	case c.MinPrice != nil:
		parts = append(parts, "from "+c.MinPrice.String())
	case c.MaxPrice != nil:
		parts = append(parts, "up to "+c.MaxPrice.String())
	}
	if c.MinBedrooms != nil {
		parts = append(parts, fmt.Sprintf("%d+ beds", *c.MinBedrooms))
	}
	if c.MinBathrooms != nil {
		parts = append(parts, fmt.Sprintf("%d+ baths", *c.MinBathrooms))
	}
	if c.MinAreaSqm != nil {
		parts = append(parts, fmt.Sprintf("%g+ sqm", *c.MinAreaSqm))
	}
	if c.Location != nil {
		parts = append(parts, fmt.Sprintf("within %gkm of %.4f,%.4f", c.Location.RadiusKm, c.Location.Latitude, c.Location.Longitude))
	}
	if len(parts) == 0 {
		parts = append(parts, "any listing")
	}

	return fmt.Sprintf("#%d [%s, %s] %s: %s", alert.ID, status, alert.Frequency, alert.Name, strings.Join(parts, ", "))
}
