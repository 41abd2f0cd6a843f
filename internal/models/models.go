package models

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Goal is the kind of ad the wizard produces
type Goal string

const (
	GoalUnset   Goal = ""
	GoalTextAd  Goal = "text_ad"
	GoalImageAd Goal = "image_ad"
)

// Valid reports whether g is a selectable goal
func (g Goal) Valid() bool {
	return g == GoalTextAd || g == GoalImageAd
}

// CreativeStyle is the tone requested from the generator. The values are
// sent to the model verbatim.
type CreativeStyle string

const (
	StyleProfessional    CreativeStyle = "Профессиональный"
	StyleSales           CreativeStyle = "Продающий (акция/скидка)"
	StylePlayful         CreativeStyle = "Креативный / Игривый"
	StyleUrgent          CreativeStyle = "Срочный"
	StyleProblemSolution CreativeStyle = "Решение проблемы"
)

// Styles lists every creative style in display order
var Styles = []CreativeStyle{
	StyleProfessional,
	StyleSales,
	StylePlayful,
	StyleUrgent,
	StyleProblemSolution,
}

func (s CreativeStyle) Valid() bool {
	return slices.Contains(Styles, s)
}

// AIModel selects the speed/quality tier of the text model
type AIModel string

const (
	ModelFast AIModel = "gemini-2.5-flash"
	ModelPro  AIModel = "gemini-2.5-pro"
)

func (m AIModel) Valid() bool {
	return m == ModelFast || m == ModelPro
}

const (
	MinVariants = 1
	MaxVariants = 5
)

// ClampVariants keeps a requested variant count inside [MinVariants, MaxVariants]
func ClampVariants(n int) int {
	return min(max(n, MinVariants), MaxVariants)
}

// FormSnapshot holds everything the user entered in the wizard
type FormSnapshot struct {
	Goal               Goal          `json:"goal" yaml:"goal"`
	ProductDescription string        `json:"productDescription" yaml:"productdescription" validate:"required"`
	TargetAudience     string        `json:"targetAudience" yaml:"targetaudience" validate:"required"`
	USP                []string      `json:"usp" yaml:"usp" validate:"min=1,usp"`
	WebsiteURL         string        `json:"websiteUrl,omitempty" yaml:"websiteurl,omitempty"`
	Keywords           string        `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	CreativeStyle      CreativeStyle `json:"creativeStyle" yaml:"creativestyle" validate:"creativestyle"`
	VariantCount       int           `json:"variantCount" yaml:"variantcount" validate:"min=1,max=5"`
	AIModel            AIModel       `json:"aiModel" yaml:"aimodel" validate:"aimodel"`
}

// DefaultForm returns the form a fresh session starts with
func DefaultForm() FormSnapshot {
	return FormSnapshot{
		USP:           []string{""},
		CreativeStyle: StyleProfessional,
		VariantCount:  3,
		AIModel:       ModelFast,
	}
}

// Clone returns a deep copy of the form
func (f FormSnapshot) Clone() FormSnapshot {
	f.USP = slices.Clone(f.USP)
	return f
}

// FilledUSP returns the selling points with blank entries dropped
func (f FormSnapshot) FilledUSP() []string {
	out := make([]string, 0, len(f.USP))
	for _, u := range f.USP {
		if s := strings.TrimSpace(u); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Sitelink is an auxiliary link shown beneath a search ad
type Sitelink struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// AdCreative is one generated ad. ImageURL carries base64 JPEG bytes and is
// only set for image ads.
type AdCreative struct {
	Headline1      string     `json:"headline1" yaml:"headline1"`
	Headline2      string     `json:"headline2" yaml:"headline2"`
	AdText         string     `json:"adText" yaml:"adtext"`
	Sitelinks      []Sitelink `json:"sitelinks" yaml:"sitelinks"`
	Clarifications []string   `json:"clarifications" yaml:"clarifications"`
	DisplayLink    string     `json:"displayLink" yaml:"displaylink"`
	ImageURL       string     `json:"imageUrl,omitempty" yaml:"-"`
}

// Advisory length ceilings requested from the generator
const (
	MaxHeadline1      = 56
	MaxHeadline2      = 30
	MaxAdText         = 81
	MaxDisplayLink    = 20
	MaxSitelinkTitle  = 30
	MaxSitelinkDesc   = 60
	MaxClarification  = 25
	MinSitelinks      = 2
	MaxSitelinks      = 4
	MinClarifications = 2
	MaxClarifications = 4
)

// Overage describes a field whose text is longer than its advisory ceiling
type Overage struct {
	Field string `json:"field"`
	Len   int    `json:"len"`
	Max   int    `json:"max"`
}

// Overages lists fields that exceed their advisory length. Used only to flag
// fields in previews; nothing is rejected.
func (c AdCreative) Overages() []Overage {
	var out []Overage
	check := func(field, text string, limit int) {
		if n := utf8.RuneCountInString(text); n > limit {
			out = append(out, Overage{Field: field, Len: n, Max: limit})
		}
	}
	check("headline1", c.Headline1, MaxHeadline1)
	check("headline2", c.Headline2, MaxHeadline2)
	check("adText", c.AdText, MaxAdText)
	check("displayLink", c.DisplayLink, MaxDisplayLink)
	for i, s := range c.Sitelinks {
		check("sitelinks["+strconv.Itoa(i)+"].title", s.Title, MaxSitelinkTitle)
		check("sitelinks["+strconv.Itoa(i)+"].description", s.Description, MaxSitelinkDesc)
	}
	for i, cl := range c.Clarifications {
		check("clarifications["+strconv.Itoa(i)+"]", cl, MaxClarification)
	}
	return out
}

// SameText reports whether two creatives have identical text fields,
// ignoring image data.
func (c AdCreative) SameText(o AdCreative) bool {
	return c.Headline1 == o.Headline1 &&
		c.Headline2 == o.Headline2 &&
		c.AdText == o.AdText &&
		c.DisplayLink == o.DisplayLink &&
		slices.Equal(c.Sitelinks, o.Sitelinks) &&
		slices.Equal(c.Clarifications, o.Clarifications)
}

// CloneCreatives deep-copies a creative list. A nil list stays nil.
func CloneCreatives(in []AdCreative) []AdCreative {
	if in == nil {
		return nil
	}
	out := make([]AdCreative, len(in))
	for i, c := range in {
		c.Sitelinks = slices.Clone(c.Sitelinks)
		c.Clarifications = slices.Clone(c.Clarifications)
		out[i] = c
	}
	return out
}

// HistoryEntry is an immutable record of one successful generation
type HistoryEntry struct {
	ID        string       `json:"id" yaml:"id"`
	FormData  FormSnapshot `json:"formData" yaml:"form"`
	Creatives []AdCreative `json:"creatives" yaml:"creatives"`
	Timestamp int64        `json:"timestamp" yaml:"timestamp"` // unix milliseconds
}
