package util

import "errors"

var (
	ErrProfileConflict     = errors.New("learner profile was modified concurrently")
	ErrObjectiveNotFound   = errors.New("learning objective not found")
	ErrContentNotFound     = errors.New("content item not found")
	ErrCatalogNotReady     = errors.New("curriculum catalog not published yet")
	ErrObjectiveReferenced = errors.New("learning objective is still referenced")
	ErrNotMastered         = errors.New("objective is not mastered, nothing to re-teach")
)
