package build

import (
	"context"
	"errors"
	"fmt"
)

// StageName identifies a build stage.
type StageName string

// Canonical stages in execution order.
const (
	StageLoadContent       StageName = "load_content"
	StagePrepareOutput     StageName = "prepare_output"
	StageRenderHome        StageName = "render_home"
	StageRenderPosts       StageName = "render_posts"
	StageRenderExperiments StageName = "render_experiments"
	StageCopyAssets        StageName = "copy_assets"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, st *State) error

// StageDef pairs a stage name with its function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is the canonical stage order.
func Pipeline() []StageDef {
	return []StageDef{
		{StageLoadContent, stageLoadContent},
		{StagePrepareOutput, stagePrepareOutput},
		{StageRenderHome, stageRenderHome},
		{StageRenderPosts, stageRenderPosts},
		{StageRenderExperiments, stageRenderExperiments},
		{StageCopyAssets, stageCopyAssets},
	}
}

// StageErrorKind classifies how a stage failed.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"
	StageErrorCanceled StageErrorKind = "canceled"
)

// StageError reports the stage a build aborted in.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newStageError(stage StageName, err error) *StageError {
	kind := StageErrorFatal
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = StageErrorCanceled
	}
	return &StageError{Kind: kind, Stage: stage, Err: err}
}
