// Package catalog parses the flag question catalog and ships the bundled fallback copy.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"flags-challenge/internal/domain"
)

//go:embed flags.json
var bundled []byte

type document struct {
	Questions []entry `json:"questions"`
}

type entry struct {
	AnswerID    int       `json:"answer_id"`
	Countries   []country `json:"countries"`
	CountryCode string    `json:"country_code"`
}

type country struct {
	Name string `json:"country_name"`
	ID   int    `json:"id"`
}

// Catalog is a fallback question source backed by raw catalog bytes.
type Catalog struct {
	data []byte
}

// Bundled returns the catalog compiled into the binary.
func Bundled() *Catalog {
	return &Catalog{data: bundled}
}

// FromBytes wraps raw catalog JSON.
func FromBytes(data []byte) *Catalog {
	return &Catalog{data: data}
}

// FromFile reads a catalog from disk.
func FromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return &Catalog{data: data}, nil
}

// Questions parses the catalog. Any parse failure is reported as domain.ErrDataUnavailable.
func (c *Catalog) Questions() ([]domain.Question, error) {
	return Parse(c.data)
}

// Parse maps catalog JSON to questions, in catalog order. Entries whose answer id
// does not appear among their countries are dropped.
func Parse(data []byte) ([]domain.Question, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", domain.ErrDataUnavailable, err)
	}

	questions := make([]domain.Question, 0, len(doc.Questions))
	for _, e := range doc.Questions {
		q, ok := e.question()
		if !ok {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (e entry) question() (domain.Question, bool) {
	correct := -1
	options := make([]string, 0, len(e.Countries))
	for i, c := range e.Countries {
		if correct < 0 && c.ID == e.AnswerID {
			correct = i
		}
		options = append(options, c.Name)
	}
	q := domain.Question{
		ID:                 e.AnswerID,
		ImageKey:           strings.ToUpper(e.CountryCode),
		Options:            options,
		CorrectOptionIndex: correct,
	}
	if q.Validate() != nil {
		return domain.Question{}, false
	}
	return q, true
}
