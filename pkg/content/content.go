// Package content holds the static copy of the public site pages.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultSite []byte

// ErrPageNotFound is returned for unknown page slugs.
var ErrPageNotFound = errors.New("page not found")

type Site struct {
	Company Company         `yaml:"company" json:"company"`
	Pages   map[string]Page `yaml:"pages" json:"pages"`
}

type Company struct {
	Name          string `yaml:"name" json:"name"`
	Tagline       string `yaml:"tagline" json:"tagline"`
	Founded       string `yaml:"founded" json:"founded"`
	Email         string `yaml:"email" json:"email"`
	Phone         string `yaml:"phone" json:"phone"`
	WhatsApp      string `yaml:"whatsapp" json:"whatsapp"`
	Address       string `yaml:"address" json:"address"`
	BusinessHours string `yaml:"businessHours" json:"businessHours"`
}

type Page struct {
	Title    string    `yaml:"title" json:"title"`
	Subtitle string    `yaml:"subtitle" json:"subtitle,omitempty"`
	Sections []Section `yaml:"sections" json:"sections"`
}

type Section struct {
	ID      string `yaml:"id" json:"id"`
	Heading string `yaml:"heading" json:"heading,omitempty"`
	Items   []Item `yaml:"items" json:"items"`
}

type Item struct {
	Title       string              `yaml:"title" json:"title"`
	Subtitle    string              `yaml:"subtitle" json:"subtitle,omitempty"`
	Description string              `yaml:"description" json:"description,omitempty"`
	Year        string              `yaml:"year" json:"year,omitempty"`
	Lists       map[string][]string `yaml:"lists" json:"lists,omitempty"`
}

// Default returns the embedded site content.
func Default() (*Site, error) {
	return Parse(defaultSite)
}

// Load reads site content from path, or the embedded copy when path is empty.
func Load(path string) (*Site, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site content: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates site content YAML.
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("parse site content: %w", err)
	}
	if len(site.Pages) == 0 {
		return nil, errors.New("site content: no pages defined")
	}
	for slug, page := range site.Pages {
		if strings.TrimSpace(page.Title) == "" {
			return nil, fmt.Errorf("site content: page %q has no title", slug)
		}
	}
	return &site, nil
}

// Page returns the page registered under slug.
func (s *Site) Page(slug string) (Page, error) {
	page, ok := s.Pages[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return Page{}, ErrPageNotFound
	}
	return page, nil
}

// Slugs lists page slugs in sorted order.
func (s *Site) Slugs() []string {
	out := make([]string, 0, len(s.Pages))
	for slug := range s.Pages {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
