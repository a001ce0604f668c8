// Package locale looks up carrier, geographic region and timezone for a phone number.
package locale

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Unknown is the placeholder for any field the metadata could not supply.
const Unknown = "unknown"

type Status string

const (
	// StatusResolved means the number parsed and was looked up; individual
	// fields may still be Unknown.
	StatusResolved Status = "resolved"
	// StatusUnresolved means the lookup itself failed.
	StatusUnresolved Status = "unresolved"
)

// Info is the locale context for one number. All string fields are always set.
type Info struct {
	Carrier  string `json:"carrier"`
	Region   string `json:"region"`
	Timezone string `json:"timezone"`
	Status   Status `json:"status"`
	Err      error  `json:"-"`
}

// Unresolved builds an all-Unknown Info carrying the failure cause.
func Unresolved(err error) Info {
	return Info{
		Carrier:  Unknown,
		Region:   Unknown,
		Timezone: Unknown,
		Status:   StatusUnresolved,
		Err:      err,
	}
}

type Resolver struct {
	defaultRegion string
	language      string
	logger        *slog.Logger
}

// NewResolver creates a resolver. defaultRegion is the ISO country assumed for
// numbers without a leading '+'; language selects carrier/region name locale.
func NewResolver(defaultRegion, language string, logger *slog.Logger) *Resolver {
	return &Resolver{
		defaultRegion: strings.ToUpper(defaultRegion),
		language:      strings.ToLower(language),
		logger:        logger,
	}
}

// Resolve never fails; lookup problems are reported through Info.Status.
func (r *Resolver) Resolve(phone string) (info Info) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("phone metadata lookup panicked", "phone", phone, "panic", p)
			info = Unresolved(fmt.Errorf("phone metadata lookup panicked: %v", p))
		}
	}()

	num, err := phonenumbers.Parse(strings.TrimSpace(phone), r.defaultRegion)
	if err != nil {
		r.logger.Debug("phone parse failed", "phone", phone, "error", err)
		return Unresolved(fmt.Errorf("parse phone: %w", err))
	}

	info = Info{Carrier: Unknown, Region: Unknown, Timezone: Unknown, Status: StatusResolved}

	if name, err := phonenumbers.GetCarrierForNumber(num, r.language); err == nil && name != "" {
		info.Carrier = name
	} else if err != nil {
		r.logger.Debug("carrier lookup failed", "phone", phone, "error", err)
	}

	if region, err := phonenumbers.GetGeocodingForNumber(num, r.language); err == nil && region != "" {
		info.Region = region
	} else if err != nil {
		r.logger.Debug("region lookup failed", "phone", phone, "error", err)
	}

	if zones, err := phonenumbers.GetTimezonesForNumber(num); err == nil && len(zones) > 0 && zones[0] != "" {
		info.Timezone = zones[0]
	} else if err != nil {
		r.logger.Debug("timezone lookup failed", "phone", phone, "error", err)
	}

	return info
}
