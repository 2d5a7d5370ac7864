package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"quiz-attempt-service/internal/domain"
)

type captureWriter struct {
	saved []domain.Quiz
}

func (w *captureWriter) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	w.saved = append(w.saved, quiz)
	return nil
}

func newTestImporter() (*Importer, *captureWriter) {
	writer := &captureWriter{}
	imp := New(writer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return imp, writer
}

const validQuiz = `
title: World Capitals
description: Basic geography
time_limit: 10
questions:
  - text: Capital of France?
    options:
      - text: Paris
        correct: true
      - text: Lyon
  - text: Capital of Japan?
    options:
      - text: Tokyo
        is_correct: true
      - text: Osaka
`

func TestParseValidQuiz(t *testing.T) {
	imp, _ := newTestImporter()

	quiz, err := imp.Parse([]byte(validQuiz))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if quiz.Title != "World Capitals" || quiz.TimeLimitMinutes != 10 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if quiz.IsLive {
		t.Fatal("imported quizzes must start unpublished")
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}

	// Both correct spellings are honored.
	for qi, question := range quiz.Questions {
		if question.QuizID != quiz.ID {
			t.Fatalf("question %d not linked to quiz", qi)
		}
		if !question.Options[0].Correct || question.Options[1].Correct {
			t.Fatalf("question %d: wrong correct flags %+v", qi, question.Options)
		}
		for _, option := range question.Options {
			if option.QuestionID != question.ID {
				t.Fatalf("option %s not linked to its question", option.ID)
			}
			if option.ID == "" {
				t.Fatal("options must get server-side IDs")
			}
		}
	}
}

func TestParseNumericScalarsBecomeText(t *testing.T) {
	imp, _ := newTestImporter()

	quiz, err := imp.Parse([]byte(`
title: Arithmetic
questions:
  - text: 2 + 2?
    options:
      - text: 4
        correct: true
      - text: 5
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	options := quiz.Questions[0].Options
	if options[0].Text != "4" || options[1].Text != "5" {
		t.Fatalf("numeric option text must survive as strings, got %+v", options)
	}
}

func TestParseValidation(t *testing.T) {
	imp, _ := newTestImporter()

	if _, err := imp.Parse([]byte("questions:\n  - text: q\n")); !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
	if _, err := imp.Parse([]byte("title: Empty\n")); !errors.Is(err, ErrMissingQuestions) {
		t.Fatalf("expected ErrMissingQuestions, got %v", err)
	}
	if _, err := imp.Parse([]byte("title: [broken")); err == nil {
		t.Fatal("expected yaml parse error")
	}
}

func TestParseDropsTextlessEntries(t *testing.T) {
	imp, _ := newTestImporter()

	quiz, err := imp.Parse([]byte(`
title: Sparse
questions:
  - text: ""
    options:
      - text: orphan
  - text: Kept question
    options:
      - text: ""
      - text: Kept option
        correct: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(quiz.Questions) != 1 {
		t.Fatalf("textless question must be dropped, got %d questions", len(quiz.Questions))
	}
	if len(quiz.Questions[0].Options) != 1 || quiz.Questions[0].Options[0].Text != "Kept option" {
		t.Fatalf("textless option must be dropped, got %+v", quiz.Questions[0].Options)
	}
}

func TestImportDirectorySkipsBadFiles(t *testing.T) {
	imp, writer := newTestImporter()
	dir := t.TempDir()

	files := map[string]string{
		"good.yaml":  validQuiz,
		"bad.yaml":   "questions: []\n",
		"notes.txt":  "not a quiz",
		"other.yml":  "title: Second\nquestions:\n  - text: q\n    options:\n      - text: a\n        correct: true\n",
		"broken.yml": "title: [oops",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	quizzes, err := imp.ImportDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 imported quizzes, got %d", len(quizzes))
	}
	if len(writer.saved) != 2 {
		t.Fatalf("expected 2 saved quizzes, got %d", len(writer.saved))
	}
}
