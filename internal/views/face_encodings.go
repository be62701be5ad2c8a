package views

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dashboard/internal/api_client"
	"dashboard/internal/models"
)

const (
	msgFetchUsers     = "Не удалось загрузить список пользователей. Попробуйте еще раз."
	msgSelectUserFile = "Выберите пользователя и загрузите файл."
	msgEnrollFailed   = "Не удалось добавить идентификацию лица."
	msgEnrolled       = "Идентификация лица успешно добавлена!"
	msgImageTooLarge  = "Файл слишком большой. Максимальный размер 10 МБ."
	msgNotAnImage     = "Загрузите изображение."
)

// MaxImageSize bounds an uploaded enrollment photo.
const MaxImageSize = 10 << 20

var (
	ErrImageTooLarge = errors.New("image exceeds size limit")
	ErrNotAnImage    = errors.New("file is not an image")
)

// CheckImage validates an upload by declared content type and size.
func CheckImage(contentType string, size int64) error {
	if size > MaxImageSize {
		return ErrImageTooLarge
	}
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}
	return nil
}

type FaceEncodingsAPI interface {
	Students(ctx context.Context) ([]models.Student, error)
	FaceEncodings(ctx context.Context) ([]models.FaceEncoding, error)
	EnrollFace(ctx context.Context, userID int64, image api_client.FaceImage) error
}

type FaceEncodingsState struct {
	Students  []models.Student
	Encodings []models.FaceEncoding
	Error     string
	Message   string
	Success   bool
}

type FaceEncodings struct {
	controller[FaceEncodingsState]
	logger *zap.Logger
}

func NewFaceEncodings(reg *Registry, logger *zap.Logger) *FaceEncodings {
	return &FaceEncodings{
		controller: controller[FaceEncodingsState]{reg: reg, view: ViewFaceEncodings},
		logger:     logger,
	}
}

func (v *FaceEncodings) Mount(ctx context.Context, sessionID string, api FaceEncodingsAPI) (FaceEncodingsState, error) {
	return v.mount(ctx, sessionID, v.load(api))
}

func (v *FaceEncodings) load(api FaceEncodingsAPI) func(context.Context) (FaceEncodingsState, error) {
	return func(ctx context.Context) (FaceEncodingsState, error) {
		var (
			state                    FaceEncodingsState
			studentsErr, encodingErr error
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			state.Students, studentsErr = api.Students(gctx)
			if fatal(studentsErr) {
				return studentsErr
			}
			return nil
		})
		g.Go(func() error {
			state.Encodings, encodingErr = api.FaceEncodings(gctx)
			if fatal(encodingErr) {
				return encodingErr
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return FaceEncodingsState{}, err
		}

		if encodingErr != nil {
			v.logger.Error("Error fetching face encodings", zap.Error(encodingErr))
		}
		if studentsErr != nil {
			v.logger.Error("Error fetching students", zap.Error(studentsErr))
			state.Error = msgFetchUsers
		}
		return state, nil
	}
}

// Enroll submits a photo for a student and reloads the view on success. A
// missing user or image, or an imageErr from CheckImage, is rejected before
// any request.
func (v *FaceEncodings) Enroll(ctx context.Context, sessionID string, api FaceEncodingsAPI, userID int64, image *api_client.FaceImage, imageErr error) (FaceEncodingsState, error) {
	if _, err := v.ensure(ctx, sessionID, v.load(api)); err != nil {
		return FaceEncodingsState{}, err
	}

	switch {
	case errors.Is(imageErr, ErrImageTooLarge):
		return v.notify(sessionID, msgImageTooLarge), nil
	case imageErr != nil:
		return v.notify(sessionID, msgNotAnImage), nil
	case userID <= 0 || image == nil:
		return v.notify(sessionID, msgSelectUserFile), nil
	}

	err := api.EnrollFace(ctx, userID, *image)
	if fatal(err) {
		return FaceEncodingsState{}, err
	}
	if err != nil {
		v.logger.Error("Error enrolling face", zap.Int64("user_id", userID), zap.Error(err))
		return v.notify(sessionID, msgEnrollFailed), nil
	}

	state, err := v.Mount(ctx, sessionID, api)
	if err != nil {
		return FaceEncodingsState{}, err
	}
	state.Message = msgEnrolled
	state.Success = true
	return state, nil
}

// notify shows a failure message on the mounted view.
func (v *FaceEncodings) notify(sessionID, message string) FaceEncodingsState {
	state, ok := v.update(sessionID, func(s FaceEncodingsState) FaceEncodingsState {
		s.Message = message
		s.Success = false
		return s
	})
	if !ok {
		state.Message = message
	}
	return state
}
