package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ForumChain is one Forum-like chain root and the area ids queried under it.
type ForumChain struct {
	Root  string `yaml:"root"`
	Areas []int  `yaml:"areas"`
	// BaseURL overrides https://www.<root>.lt, mainly for tests.
	BaseURL string `yaml:"baseURL"`
}

// TicketingSource configures the REST ticketing feed.
type TicketingSource struct {
	BaseURL string `yaml:"baseURL"`
	Project string `yaml:"project"`
}

// WordPressSource configures the WordPress custom JSON feed.
type WordPressSource struct {
	BaseURL string `yaml:"baseURL"`
	SiteURL string `yaml:"siteURL"`
	Cinema  string `yaml:"cinema"`
}

// Sources is the fixed table of upstream feeds the aggregator fans out to.
// A nil Ticketing or WordPress entry disables that feed.
type Sources struct {
	Forum     []ForumChain     `yaml:"forum"`
	Ticketing *TicketingSource `yaml:"ticketing"`
	WordPress *WordPressSource `yaml:"wordpress"`
}

// DefaultSources is the built-in table: two Forum-like chains with three
// locations, the Pasaka ticketing API and the Skalvija WordPress feed.
func DefaultSources() Sources {
	return Sources{
		Forum: []ForumChain{
			{Root: "forumcinemas", Areas: []int{1011}},
			{Root: "apollokinas", Areas: []int{1019, 1024}},
		},
		Ticketing: &TicketingSource{
			BaseURL: "https://api.pasaka.lt/movies",
			Project: "pasaka",
		},
		WordPress: &WordPressSource{
			BaseURL: "https://skalvija.lt/wp-json/data/v1/get_shows/",
			SiteURL: "https://www.skalvija.lt",
			Cinema:  "Skalvija",
		},
	}
}

// LoadSources reads the source table from path, or returns DefaultSources
// when path is empty.
func LoadSources(path string) (Sources, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSources(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, err
	}
	var s Sources
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Sources{}, err
	}
	if err := s.validate(); err != nil {
		return Sources{}, err
	}
	return s, nil
}

func (s Sources) validate() error {
	count := 0
	for i, ch := range s.Forum {
		if strings.TrimSpace(ch.Root) == "" {
			return fmt.Errorf("forum[%d]: root is required", i)
		}
		if len(ch.Areas) == 0 {
			return fmt.Errorf("forum[%d] %s: at least one area is required", i, ch.Root)
		}
		count += len(ch.Areas)
	}
	if s.Ticketing != nil {
		if s.Ticketing.BaseURL == "" {
			return fmt.Errorf("ticketing: baseURL is required")
		}
		count++
	}
	if s.WordPress != nil {
		if s.WordPress.BaseURL == "" {
			return fmt.Errorf("wordpress: baseURL is required")
		}
		if s.WordPress.Cinema == "" {
			return fmt.Errorf("wordpress: cinema is required")
		}
		count++
	}
	if count == 0 {
		return fmt.Errorf("source table must configure at least one feed")
	}
	return nil
}
