package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"quiz-attempt-service/internal/domain"
)

// CatalogWriter persists an imported quiz and its question tree.
type CatalogWriter interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

var (
	ErrMissingTitle     = errors.New("quiz must have a title")
	ErrMissingQuestions = errors.New("quiz must have questions as a list")
)

// flexString accepts any YAML scalar and keeps its string form, so option
// texts like plain numbers survive import.
type flexString string

func (f *flexString) UnmarshalYAML(value *yaml.Node) error {
	*f = flexString(value.Value)
	return nil
}

type quizFile struct {
	Title            string         `yaml:"title"`
	Description      string         `yaml:"description"`
	TimeLimitMinutes int            `yaml:"time_limit"`
	Questions        []questionFile `yaml:"questions"`
}

type questionFile struct {
	Text    flexString   `yaml:"text"`
	Options []optionFile `yaml:"options"`
}

type optionFile struct {
	Text flexString `yaml:"text"`
	// Both spellings occur in quiz files in the wild.
	Correct   bool `yaml:"correct"`
	IsCorrect bool `yaml:"is_correct"`
}

// Importer turns YAML quiz files into catalog rows. Imported quizzes start
// unpublished; an admin flips is_live separately.
type Importer struct {
	writer CatalogWriter
	log    *slog.Logger
	newID  func() string
}

func New(writer CatalogWriter, log *slog.Logger) *Importer {
	return &Importer{writer: writer, log: log, newID: uuid.NewString}
}

// ImportFile parses one YAML quiz file and writes it to the catalog.
func (i *Importer) ImportFile(ctx context.Context, path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := i.Parse(data)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := i.writer.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save %q: %w", quiz.Title, err)
	}
	i.log.Info("quiz imported", "title", quiz.Title, "questions", len(quiz.Questions))
	return quiz, nil
}

// ImportDirectory imports every .yml/.yaml file in dir, continuing past files
// that fail so one bad quiz doesn't sink the batch.
func (i *Importer) ImportDirectory(ctx context.Context, dir string) ([]domain.Quiz, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var quizzes []domain.Quiz
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		quiz, err := i.ImportFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			i.log.Error("quiz file skipped", "file", entry.Name(), "err", err)
			continue
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// Parse validates raw YAML and assigns server-side IDs. Questions without
// text and options without text are dropped with a warning; a question left
// with no correct option is kept but warned about, since scoring tolerates it.
func (i *Importer) Parse(data []byte) (domain.Quiz, error) {
	var file quizFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse yaml: %w", err)
	}
	if strings.TrimSpace(file.Title) == "" {
		return domain.Quiz{}, ErrMissingTitle
	}
	if len(file.Questions) == 0 {
		return domain.Quiz{}, ErrMissingQuestions
	}

	quiz := domain.Quiz{
		ID:               i.newID(),
		Title:            file.Title,
		Description:      file.Description,
		IsLive:           false,
		TimeLimitMinutes: file.TimeLimitMinutes,
	}
	for qi, q := range file.Questions {
		if strings.TrimSpace(string(q.Text)) == "" {
			i.log.Warn("skipping question without text", "quiz", file.Title, "index", qi)
			continue
		}
		question := domain.Question{
			ID:     i.newID(),
			QuizID: quiz.ID,
			Text:   string(q.Text),
		}
		hasCorrect := false
		for oi, o := range q.Options {
			if strings.TrimSpace(string(o.Text)) == "" {
				i.log.Warn("skipping option without text", "quiz", file.Title, "question", question.Text, "index", oi)
				continue
			}
			correct := o.Correct || o.IsCorrect
			if correct {
				hasCorrect = true
			}
			question.Options = append(question.Options, domain.Option{
				ID:         i.newID(),
				QuestionID: question.ID,
				Text:       string(o.Text),
				Correct:    correct,
			})
		}
		if !hasCorrect {
			i.log.Warn("question has no correct option", "quiz", file.Title, "question", question.Text)
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz, nil
}
