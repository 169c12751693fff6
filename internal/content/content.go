// Package content serves the static curriculum: lesson days, flashcards and
// weekly assessments, read once from JSON and never mutated.
package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"

	"github.com/samber/lo"
)

//go:embed data
var embedded embed.FS

type Example struct {
	Spanish string `json:"spanish"`
	English string `json:"english"`
}

type Grammar struct {
	Title       string    `json:"title"`
	Focus       []string  `json:"focus"`
	Explanation string    `json:"explanation"`
	Examples    []Example `json:"examples"`
}

type Word struct {
	Spanish       string `json:"spanish"`
	English       string `json:"english"`
	Pronunciation string `json:"pronunciation"`
	Example       string `json:"example"`
	Category      string `json:"category"`
}

type Exercise struct {
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Day is the content bundle for one lesson day.
type Day struct {
	Day        int        `json:"day"`
	Week       int        `json:"week"`
	Title      string     `json:"title"`
	Subtitle   string     `json:"subtitle"`
	Grammar    Grammar    `json:"grammar"`
	Vocabulary []Word     `json:"vocabulary"`
	Exercises  []Exercise `json:"exercises"`
}

type Flashcard struct {
	ID       string `json:"id"`
	Front    string `json:"front"`
	Back     string `json:"back"`
	Day      int    `json:"day"`
	Category string `json:"category"`
}

type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

type Assessment struct {
	Week         int        `json:"week"`
	Title        string     `json:"title"`
	PassingScore int        `json:"passingScore"`
	Questions    []Question `json:"questions"`
}

// Correct counts answers matching their question, position by position.
func (a *Assessment) Correct(answers []string) int {
	correct := 0
	for i, q := range a.Questions {
		if i < len(answers) && answers[i] == q.Answer {
			correct++
		}
	}
	return correct
}

// Score returns the percentage of answers that match, and whether it passes.
func (a *Assessment) Score(answers []string) (int, bool) {
	if len(a.Questions) == 0 {
		return 0, false
	}
	pct := a.Correct(answers) * 100 / len(a.Questions)
	return pct, pct >= a.PassingScore
}

// Index is the in-memory lookup table built at load time.
type Index struct {
	days        map[int]*Day
	flashcards  []Flashcard
	assessments map[string]*Assessment
}

// Load builds an index from fsys, which must hold days/*.json, flashcards.json
// and assessments.json.
func Load(fsys fs.FS) (*Index, error) {
	idx := &Index{
		days:        make(map[int]*Day),
		assessments: make(map[string]*Assessment),
	}

	dayFiles, err := fs.Glob(fsys, "days/*.json")
	if err != nil {
		return nil, err
	}
	for _, name := range dayFiles {
		var d Day
		if err := readJSON(fsys, name, &d); err != nil {
			return nil, err
		}
		if d.Day < 1 {
			return nil, fmt.Errorf("content: %s has no day number", name)
		}
		if _, dup := idx.days[d.Day]; dup {
			return nil, fmt.Errorf("content: day %d defined twice (%s)", d.Day, name)
		}
		if d.Week == 0 {
			d.Week = WeekOf(d.Day)
		}
		idx.days[d.Day] = &d
	}

	var deck struct {
		Cards []Flashcard `json:"cards"`
	}
	if err := readJSON(fsys, "flashcards.json", &deck); err != nil {
		return nil, err
	}
	idx.flashcards = deck.Cards

	if err := readJSON(fsys, "assessments.json", &idx.assessments); err != nil {
		return nil, err
	}
	return idx, nil
}

// Default loads the curriculum compiled into the binary.
func Default() (*Index, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("content: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("content: decode %s: %w", path.Base(name), err)
	}
	return nil
}

// Day returns the lesson for day n, or nil when there is none.
func (idx *Index) Day(n int) *Day {
	return idx.days[n]
}

// Days lists the day numbers that have content, ascending.
func (idx *Index) Days() []int {
	days := lo.Keys(idx.days)
	sort.Ints(days)
	return days
}

// FlashcardsForDay returns every card introduced on or before day, in deck order.
func (idx *Index) FlashcardsForDay(day int) []Flashcard {
	return lo.Filter(idx.flashcards, func(card Flashcard, _ int) bool {
		return card.Day <= day
	})
}

// Assessment returns the assessment for the given week, or nil.
func (idx *Index) Assessment(week int) *Assessment {
	return idx.assessments["week"+strconv.Itoa(week)]
}

// Week groups course days. The last week absorbs days 29 and 30.
type Week struct {
	Num   int
	Title string
	Days  []int
}

var weekTitles = []string{"Foundations", "Past Tenses", "Advanced Structures", "Practical Fluency"}

// Weeks lists the four course weeks with their days.
func Weeks() []Week {
	weeks := make([]Week, len(weekTitles))
	for i, title := range weekTitles {
		weeks[i] = Week{Num: i + 1, Title: title}
	}
	for d := 1; d <= 30; d++ {
		w := WeekOf(d)
		weeks[w-1].Days = append(weeks[w-1].Days, d)
	}
	return weeks
}

// WeekOf maps a course day to its week number.
func WeekOf(day int) int {
	if day < 1 {
		return 1
	}
	return min((day-1)/7+1, len(weekTitles))
}
