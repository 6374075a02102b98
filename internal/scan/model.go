package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Skill levels a generated recipe may carry.
const (
	SkillEasy   = "Easy"
	SkillMedium = "Medium"
	SkillHard   = "Hard"
)

// ErrNoRecipes is returned when the model output parses but contains no recipes.
var ErrNoRecipes = errors.New("model returned no recipes")

// Recipe is one suggestion produced by the generative model. ImageURL is
// overwritten by the orchestrator with an image-search result.
type Recipe struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	TimeMinutes  int      `json:"time_minutes"`
	SkillLevel   string   `json:"skill_level"`
	ImageURL     string   `json:"image_url"`
}

// Scan is one completed photo-to-recipes analysis owned by a user.
// Immutable once created; Recipes is never empty.
type Scan struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Recipes   []Recipe  `json:"recipes"`
}

// Title, Notes and Image summarize a scan from its first recipe.
func (s *Scan) Title() string { return s.Recipes[0].Title }
func (s *Scan) Notes() string { return s.Recipes[0].Description }
func (s *Scan) Image() string { return s.Recipes[0].ImageURL }

// ScanSummary is the account-page view of a scan.
type ScanSummary struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Title    string    `json:"title"`
	Notes    string    `json:"notes"`
	ImageURL string    `json:"image_url"`
}

// User is a registered account with its scan history.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Scans        map[string]*Scan
}

// ParseRecipes parses the raw model output into validated recipes. The model
// is asked for clean JSON but may still wrap it in markdown fences, so the
// text is trimmed to the outermost JSON array first.
func ParseRecipes(raw string) ([]Recipe, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || start > end {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var recipes []Recipe
	if err := json.Unmarshal([]byte(raw[start:end+1]), &recipes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipes: %w", err)
	}
	if len(recipes) == 0 {
		return nil, ErrNoRecipes
	}

	for i := range recipes {
		if recipes[i].Title == "" {
			return nil, fmt.Errorf("recipe %d has no title", i)
		}
		if recipes[i].TimeMinutes < 0 {
			return nil, fmt.Errorf("recipe %d has negative time_minutes", i)
		}
		recipes[i].SkillLevel = normalizeSkill(recipes[i].SkillLevel)
	}
	return recipes, nil
}

func normalizeSkill(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return SkillEasy
	case "medium":
		return SkillMedium
	case "hard":
		return SkillHard
	default:
		return SkillMedium
	}
}
