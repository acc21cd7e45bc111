package generation

import (
	"fmt"
	"strings"

	"github.com/hyperjump/sitewright/internal/models"
)

// Slot names. Numbered slots use the base name plus a 1-based index,
// e.g. "service_2_description" or "testimonial_3".
const (
	SlotHeadline      = "headline"
	SlotTagline       = "tagline"
	SlotDescription   = "description"
	SlotAbout         = "about"
	SlotFeatures      = "features"
	SlotCTAPrimary    = "cta_primary"
	SlotCTASecondary  = "cta_secondary"
	SlotImageKeywords = "image_keywords"
	SlotService       = "service"
	SlotTestimonial   = "testimonial"
)

// ImageGroups are the image keyword groups generated for every run.
var ImageGroups = []string{"hero", "about", "services", "team"}

// TestimonialCount is the number of testimonial slots per run.
const TestimonialCount = 3

// MaxFeatures bounds the feature list parsed from a generation.
const MaxFeatures = 6

var defaultAuthors = [TestimonialCount]string{"Maria S.", "Daniel R.", "Sofia P."}

// Slot is one named content need.
type Slot struct {
	Name     string
	Task     string
	MaxWords int
	// Lines keeps one item per line instead of collapsing whitespace.
	Lines   bool
	Default string
}

func serviceSlot(n int, field string) string {
	return fmt.Sprintf("%s_%d_%s", SlotService, n, field)
}

func testimonialSlot(n int) string {
	return fmt.Sprintf("%s_%d", SlotTestimonial, n)
}

func imageSlot(group string) string {
	return SlotImageKeywords + "_" + group
}

// categoryLabel turns "law_firm" into "law firm".
func categoryLabel(p *models.BusinessProfile) string {
	label := strings.ToLower(strings.ReplaceAll(p.Category, "_", " "))
	if label == "" {
		return "business"
	}
	return label
}

// declareSlots lists every slot for a profile in dispatch order. Service
// titles come from the profile when it names services; otherwise they are
// generated too.
func declareSlots(p *models.BusinessProfile, serviceCount int) []Slot {
	label := categoryLabel(p)
	audience := p.TargetAudience
	if audience == "" {
		audience = "our community"
	}
	about := fmt.Sprintf("%s is a %s dedicated to serving %s.", p.Name, label, audience)
	if p.Location != "" {
		about = fmt.Sprintf("%s is a %s in %s dedicated to serving %s.", p.Name, label, p.Location, audience)
	}

	slots := []Slot{
		{Name: SlotHeadline, Task: "Write a headline for the home page.", MaxWords: 12, Default: p.Name},
		{Name: SlotTagline, Task: "Write a short tagline.", MaxWords: 12, Default: fmt.Sprintf("Quality %s you can trust", label)},
		{Name: SlotDescription, Task: "Write a short business description.", MaxWords: 60, Default: p.Description},
		{Name: SlotAbout, Task: "Write the about us section.", MaxWords: 120, Default: about},
		{Name: SlotFeatures, Task: "List the key features, one per line.", MaxWords: 8, Lines: true,
			Default: "Experienced team\nQuality service\nCustomer satisfaction"},
	}

	for i := 1; i <= serviceCount; i++ {
		title := ""
		if i <= len(p.Services) {
			title = p.Services[i-1]
		} else {
			slots = append(slots, Slot{
				Name:     serviceSlot(i, "title"),
				Task:     fmt.Sprintf("Write a service title for service %d.", i),
				MaxWords: 6,
				Default:  fmt.Sprintf("Service %d", i),
			})
		}
		subject := "our services"
		if title != "" {
			subject = fmt.Sprintf("%q", title)
		}
		def := fmt.Sprintf("Professional %s delivered by %s.", label, p.Name)
		if title != "" {
			def = fmt.Sprintf("%s delivered with care by %s.", title, p.Name)
		}
		slots = append(slots, Slot{
			Name:     serviceSlot(i, "description"),
			Task:     fmt.Sprintf("Write a service description for %s.", subject),
			MaxWords: 40,
			Default:  def,
		})
	}

	testimonialDefaults := [TestimonialCount]string{
		"Excellent service and a friendly team. Highly recommended.",
		"Professional, reliable and always on time.",
		fmt.Sprintf("The best %s in town. We keep coming back.", label),
	}
	for i := 1; i <= TestimonialCount; i++ {
		slots = append(slots, Slot{
			Name:     testimonialSlot(i),
			Task:     fmt.Sprintf("Write customer testimonial number %d.", i),
			MaxWords: 40,
			Default:  testimonialDefaults[i-1],
		})
	}

	slots = append(slots,
		Slot{Name: SlotCTAPrimary, Task: "Write a primary call to action button label.", MaxWords: 4, Default: "Contact us"},
		Slot{Name: SlotCTASecondary, Task: "Write a secondary call to action button label.", MaxWords: 4, Default: "Learn more"},
	)
	for _, group := range ImageGroups {
		slots = append(slots, Slot{
			Name:     imageSlot(group),
			Task:     fmt.Sprintf("Suggest comma separated image keywords for the %s section.", group),
			MaxWords: 10,
			Default:  fmt.Sprintf("%s, %s", label, group),
		})
	}
	return slots
}

// Prompt builds the full prompt for a slot. The first line is the task.
func (s Slot) Prompt(p *models.BusinessProfile) string {
	var b strings.Builder
	b.WriteString(s.Task)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Business: %s\n", p.Name)
	fmt.Fprintf(&b, "Category: %s\n", categoryLabel(p))
	if p.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", p.Industry)
	}
	fmt.Fprintf(&b, "About the business: %s\n", p.Description)
	if len(p.Services) > 0 {
		fmt.Fprintf(&b, "Services: %s\n", strings.Join(p.Services, ", "))
	}
	if p.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", p.TargetAudience)
	}
	if p.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", p.Location)
	}
	fmt.Fprintf(&b, "Constraints: at most %d words, professional and friendly tone, plain text only.", s.MaxWords)
	return b.String()
}
