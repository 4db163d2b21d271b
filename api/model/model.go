/*
Copyright 2024 Claimdesk Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/claimdesk/claimdesk/model"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// dateFields are the update keys that arrive as strings on the wire but
// must reach the state machine as time.Time values.
var dateFields = map[string]struct{}{
	"incident_date":   {},
	"submitted_date":  {},
	"settlement_date": {},
	"reprocess_date":  {},
	"start_date":      {},
	"end_date":        {},
}

func validateDateFormat(value string) error {
	if _, err := parseDate(value); err != nil {
		return errors.New("please format dates as 'YYYY-MM-DD' or 'YYYY-MM-DDTHH:MM:SS+00:00' (e.g., 2024-04-22T15:28:03+00:00)")
	}
	return nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func dateRule(value string) validation.Rule {
	return validation.By(func(interface{}) error {
		if value == "" {
			return nil
		}
		return validateDateFormat(value)
	})
}

func (c *CreateClaim) ValidateCreateClaim() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.PolicyID, validation.Required),
		validation.Field(&c.IncidentDate, dateRule(c.IncidentDate)),
	)
}

func (p *CreatePolicy) ValidateCreatePolicy() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.ClientID, validation.Required),
		validation.Field(&p.InsurerID, validation.Required),
		validation.Field(&p.StartDate, dateRule(p.StartDate)),
		validation.Field(&p.EndDate, dateRule(p.EndDate)),
	)
}

// ToFieldSet converts a raw update body into the typed sparse field set
// the state machines consume. Date-carrying keys are parsed into
// time.Time; everything else passes through as decoded JSON.
func ToFieldSet(raw map[string]interface{}) (model.FieldSet, error) {
	fields := model.FieldSet{}
	for key, value := range raw {
		if _, isDate := dateFields[key]; !isDate {
			fields[key] = value
			continue
		}
		if value == nil {
			fields[key] = nil
			continue
		}
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %s must be a date string", key)
		}
		parsed, err := parseDate(str)
		if err != nil {
			return nil, fmt.Errorf("field %s: %s", key, validateDateFormat(str))
		}
		fields[key] = parsed
	}
	return fields, nil
}
