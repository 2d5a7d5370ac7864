package app

import "quiz-attempt-service/internal/domain"

// CorrectOptions maps each question of the quiz to its correct option ID.
// Questions without a correct option contribute no entry; when authoring has
// flagged more than one option the first wins.
func CorrectOptions(quiz domain.Quiz) map[string]string {
	correct := make(map[string]string, len(quiz.Questions))
	for _, q := range quiz.Questions {
		for _, opt := range q.Options {
			if opt.Correct {
				correct[q.ID] = opt.ID
				break
			}
		}
	}
	return correct
}

// ScoreAttempt counts questions whose chosen option matches the correct one.
// Unanswered questions and questions absent from the correct map never score.
// A quiz with zero questions yields zero with no further arithmetic.
func ScoreAttempt(correct, chosen map[string]string) int {
	score := 0
	for questionID, correctOptionID := range correct {
		if chosen[questionID] == correctOptionID {
			score++
		}
	}
	return score
}

func answerMap(answers []domain.Answer) map[string]string {
	chosen := make(map[string]string, len(answers))
	for _, a := range answers {
		chosen[a.QuestionID] = a.OptionID
	}
	return chosen
}
