package domain

import "errors"

// Error taxonomy for the analysis pipeline. Callers match with errors.Is;
// lower layers wrap these with context via fmt.Errorf("...: %w", err).
var (
	// ErrSchema marks an input table missing a required column or carrying
	// an unparseable date/time. The whole run aborts; no partial profiling.
	ErrSchema = errors.New("transaction table schema error")

	// ErrInsufficientData marks a training set that is too small, unlabeled,
	// or single-class. A previously trained model is never corrupted by it.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrUnknownCategory marks a categorical value never seen at fit time.
	// The prediction path maps unseen values to the reserved unknown bucket
	// instead, so this surfaces only from strict validation paths.
	ErrUnknownCategory = errors.New("unknown category value")

	// ErrModelNotTrained marks a prediction attempt with no active model.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrFeatureMismatch marks a restored bundle whose feature-name list
	// does not match what feature engineering currently produces.
	ErrFeatureMismatch = errors.New("bundle feature set mismatch")

	// ErrNotFound marks an absent record or bundle.
	ErrNotFound = errors.New("record not found")
)
