// Package models defines the business profile, run reports and error taxonomy.
package models

import (
	"fmt"
	"strings"
)

// ContactInfo holds optional ways to reach the business.
type ContactInfo struct {
	Phone   string `json:"phone,omitempty" yaml:"phone"`
	Email   string `json:"email,omitempty" yaml:"email"`
	Address string `json:"address,omitempty" yaml:"address"`
}

// BusinessProfile describes the entity a site is generated for.
type BusinessProfile struct {
	Name           string       `json:"name" yaml:"name"`
	Category       string       `json:"category" yaml:"category"`
	Description    string       `json:"description" yaml:"description"`
	Industry       string       `json:"industry,omitempty" yaml:"industry"`
	Services       []string     `json:"services,omitempty" yaml:"services"`
	TargetAudience string       `json:"target_audience,omitempty" yaml:"target_audience"`
	Location       string       `json:"location,omitempty" yaml:"location"`
	Contact        *ContactInfo `json:"contact,omitempty" yaml:"contact"`
}

// Validate ensures the required fields are present and trims whitespace.
func (p *BusinessProfile) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Description = strings.TrimSpace(p.Description)
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Category == "" {
		missing = append(missing, "category")
	}
	if p.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidProfile, strings.Join(missing, ", "))
	}
	if p.Services != nil {
		services := make([]string, 0, len(p.Services))
		for _, s := range p.Services {
			if s = strings.TrimSpace(s); s != "" {
				services = append(services, s)
			}
		}
		p.Services = services
	}
	return nil
}

// Copy returns a deep copy so the pipeline can hold an immutable snapshot.
func (p BusinessProfile) Copy() BusinessProfile {
	out := p
	if p.Services != nil {
		out.Services = append([]string(nil), p.Services...)
	}
	if p.Contact != nil {
		c := *p.Contact
		out.Contact = &c
	}
	return out
}
