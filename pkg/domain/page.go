package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServicePage is the content of one marketing page: hero, services grid,
// process steps, FAQs and the closing CTA. The same shape is used by the
// web3Services, ai-ml-services and mainpages collections.
type ServicePage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	PageID      string             `bson:"pageId,omitempty" json:"pageId,omitempty"`
	ServiceType string             `bson:"serviceType,omitempty" json:"serviceType,omitempty"`
	Slug        string             `bson:"slug" json:"slug" validate:"required"`
	Title       string             `bson:"title" json:"title" validate:"required"`
	SEO         SEO                `bson:"seo" json:"seo"`
	Hero        Hero               `bson:"hero" json:"hero"`
	Services    []ServiceItem      `bson:"services,omitempty" json:"services,omitempty"`
	Process     []ProcessStep      `bson:"process,omitempty" json:"process,omitempty"`
	Benefits    []Feature          `bson:"benefits,omitempty" json:"benefits,omitempty"`
	FAQs        []FAQ              `bson:"faqs,omitempty" json:"faqs,omitempty"`
	CTA         *CTA               `bson:"cta,omitempty" json:"cta,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt   time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type SEO struct {
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description" json:"description"`
	Keywords    []string `bson:"keywords,omitempty" json:"keywords,omitempty"`
	OGImage     string   `bson:"ogImage,omitempty" json:"ogImage,omitempty"`
}

type Hero struct {
	Heading      string `bson:"heading" json:"heading"`
	Subheading   string `bson:"subheading,omitempty" json:"subheading,omitempty"`
	Description  string `bson:"description,omitempty" json:"description,omitempty"`
	Image        string `bson:"image,omitempty" json:"image,omitempty"`
	PrimaryCTA   *Link  `bson:"primaryCta,omitempty" json:"primaryCta,omitempty"`
	SecondaryCTA *Link  `bson:"secondaryCta,omitempty" json:"secondaryCta,omitempty"`
}

type Link struct {
	Text string `bson:"text" json:"text"`
	Href string `bson:"href" json:"href"`
}

type ServiceItem struct {
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description" json:"description"`
	Icon        string   `bson:"icon,omitempty" json:"icon,omitempty"`
	Features    []string `bson:"features,omitempty" json:"features,omitempty"`
}

type ProcessStep struct {
	Step        int    `bson:"step" json:"step"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
}

type Feature struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Icon        string `bson:"icon,omitempty" json:"icon,omitempty"`
}

type FAQ struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

type CTA struct {
	Heading     string `bson:"heading" json:"heading"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	ButtonText  string `bson:"buttonText" json:"buttonText"`
	ButtonLink  string `bson:"buttonLink" json:"buttonLink"`
	Image       string `bson:"image,omitempty" json:"image,omitempty"`
}

// Project is a portfolio case study stored in the projects collection.
type Project struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Slug         string             `bson:"slug" json:"slug" validate:"required"`
	Title        string             `bson:"title" json:"title" validate:"required"`
	Client       string             `bson:"client,omitempty" json:"client,omitempty"`
	Industry     string             `bson:"industry,omitempty" json:"industry,omitempty"`
	Summary      string             `bson:"summary" json:"summary"`
	Challenge    string             `bson:"challenge,omitempty" json:"challenge,omitempty"`
	Solution     string             `bson:"solution,omitempty" json:"solution,omitempty"`
	Results      []string           `bson:"results,omitempty" json:"results,omitempty"`
	Technologies []string           `bson:"technologies,omitempty" json:"technologies,omitempty"`
	Images       []string           `bson:"images,omitempty" json:"images,omitempty"`
	SEO          SEO                `bson:"seo" json:"seo"`
	CreatedAt    time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt    time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
