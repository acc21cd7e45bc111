package generation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/placeholder"
)

// BuildEnvironment maps a profile and its generated content onto the variable
// names templates use.
func BuildEnvironment(profile *models.BusinessProfile, c *Content) placeholder.Env {
	env := placeholder.Env{
		"BUSINESS_NAME":        placeholder.String(profile.Name),
		"BUSINESS_CATEGORY":    placeholder.String(profile.Category),
		"BUSINESS_DESCRIPTION": placeholder.String(profile.Description),
		"INDUSTRY":             placeholder.String(profile.Industry),
		"TARGET_AUDIENCE":      placeholder.String(profile.TargetAudience),
		"LOCATION":             placeholder.String(profile.Location),
		"HAS_LOCATION":         placeholder.Bool(profile.Location != ""),
	}

	var contact models.ContactInfo
	if profile.Contact != nil {
		contact = *profile.Contact
	}
	env["PHONE"] = placeholder.String(contact.Phone)
	env["EMAIL"] = placeholder.String(contact.Email)
	env["ADDRESS"] = placeholder.String(contact.Address)
	env["HAS_PHONE"] = placeholder.Bool(contact.Phone != "")
	env["HAS_EMAIL"] = placeholder.Bool(contact.Email != "")
	env["HAS_ADDRESS"] = placeholder.Bool(contact.Address != "")

	year := c.GeneratedAt
	if year.IsZero() {
		year = time.Now()
	}
	env["YEAR"] = placeholder.String(strconv.Itoa(year.Year()))

	env["HEADLINE"] = placeholder.String(c.Headline)
	env["TAGLINE"] = placeholder.String(c.Tagline)
	env["DESCRIPTION"] = placeholder.String(c.Description)
	env["ABOUT_TEXT"] = placeholder.String(c.About)
	env["CTA_PRIMARY"] = placeholder.String(c.CTAPrimary)
	env["CTA_SECONDARY"] = placeholder.String(c.CTASecondary)

	features := make([]placeholder.Env, 0, len(c.Features))
	for i, f := range c.Features {
		env[fmt.Sprintf("FEATURE_%d", i+1)] = placeholder.String(f)
		features = append(features, placeholder.Env{"FEATURE": placeholder.String(f)})
	}
	env["FEATURES"] = placeholder.List(features...)

	services := make([]placeholder.Env, 0, len(c.Services))
	for i, s := range c.Services {
		env[fmt.Sprintf("SERVICE_%d_TITLE", i+1)] = placeholder.String(s.Title)
		env[fmt.Sprintf("SERVICE_%d_DESCRIPTION", i+1)] = placeholder.String(s.Description)
		services = append(services, placeholder.Env{
			"SERVICE_TITLE":       placeholder.String(s.Title),
			"SERVICE_DESCRIPTION": placeholder.String(s.Description),
		})
	}
	env["SERVICES"] = placeholder.List(services...)

	testimonials := make([]placeholder.Env, 0, len(c.Testimonials))
	for i, t := range c.Testimonials {
		env[fmt.Sprintf("TESTIMONIAL_%d_TEXT", i+1)] = placeholder.String(t.Text)
		env[fmt.Sprintf("TESTIMONIAL_%d_AUTHOR", i+1)] = placeholder.String(t.Author)
		testimonials = append(testimonials, placeholder.Env{
			"TESTIMONIAL_TEXT":   placeholder.String(t.Text),
			"TESTIMONIAL_AUTHOR": placeholder.String(t.Author),
		})
	}
	env["TESTIMONIALS"] = placeholder.List(testimonials...)

	env["IMAGE_KEYWORDS_HERO"] = placeholder.String(c.ImageKeywords.Hero)
	env["IMAGE_KEYWORDS_ABOUT"] = placeholder.String(c.ImageKeywords.About)
	env["IMAGE_KEYWORDS_SERVICES"] = placeholder.String(c.ImageKeywords.Services)
	env["IMAGE_KEYWORDS_TEAM"] = placeholder.String(c.ImageKeywords.Team)
	return env
}
