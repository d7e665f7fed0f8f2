package util

import "errors"

var (
	ErrPermissionDenied = errors.New("permission denied")

	ErrTestNotFound     = errors.New("test not found")
	ErrTestNotPublished = errors.New("test not published or not accessible")
	ErrTestNotPurchased = errors.New("test not purchased")

	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptNotActive     = errors.New("attempt is no longer active")
	ErrAttemptNotFinished   = errors.New("attempt not submitted yet")
	ErrTestAlreadySubmitted = errors.New("test already submitted")

	ErrQuestionNotFound  = errors.New("question not found")
	ErrQuestionNotInTest = errors.New("question does not belong to this test")
	ErrInvalidAnswerKey  = errors.New("question answer key is malformed")
	ErrScoringFailed     = errors.New("scoring failed")
)
