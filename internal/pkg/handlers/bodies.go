package handlers

import (
	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
)

var (
	floodlightEnum = []interface{}{"on", "off", "auto"}
	monitoringEnum = []interface{}{"on", "off"}
)

// SetStateBody is the request body of POST /cameras/{id}/state
type SetStateBody struct {
	// resolved from the camera when absent
	HomeID *string `json:"home_id,omitempty"`

	// Enum: [on off auto]
	Floodlight *string `json:"floodlight,omitempty"`

	// Enum: [on off]
	Monitoring *string `json:"monitoring,omitempty"`
}

// Validate checks the enums and that at least one state is requested
func (m *SetStateBody) Validate(formats strfmt.Registry) error {
	var res []error

	if m.Floodlight == nil && m.Monitoring == nil {
		res = append(res, oaerrors.New(422, "one of floodlight or monitoring must be set"))
	}

	if m.Floodlight != nil {
		if err := validate.Enum("floodlight", "body", swag.StringValue(m.Floodlight), floodlightEnum); err != nil {
			res = append(res, err)
		}
	}

	if m.Monitoring != nil {
		if err := validate.Enum("monitoring", "body", swag.StringValue(m.Monitoring), monitoringEnum); err != nil {
			res = append(res, err)
		}
	}

	if m.HomeID != nil {
		if err := validate.RequiredString("home_id", "body", swag.StringValue(m.HomeID)); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return oaerrors.CompositeValidationError(res...)
	}
	return nil
}

// PersonsBody is the request body of POST /homes/{id}/persons/{away,home}
type PersonsBody struct {
	PersonIDs []string `json:"person_ids"`
}

// Validate rejects empty person ids.  An empty list is allowed and means
// every person of the home.
func (m *PersonsBody) Validate(formats strfmt.Registry) error {
	var res []error

	for i, id := range m.PersonIDs {
		if err := validate.RequiredString("person_ids."+swag.FormatInt64(int64(i)), "body", id); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return oaerrors.CompositeValidationError(res...)
	}
	return nil
}
