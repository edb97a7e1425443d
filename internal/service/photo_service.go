package service

import (
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
	"github.com/noah-isme/lostfound-api/pkg/imaging"
)

type photoStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

// PhotoService normalises and stores item photos. Every accepted upload is
// sniffed, downscaled when oversized and re-encoded as JPEG before it
// touches disk, so nothing client-controlled is served back verbatim.
type PhotoService struct {
	storage photoStorage
	baseURL string
	logger  *zap.Logger
}

// NewPhotoService constructs a PhotoService serving files under baseURL.
func NewPhotoService(storage photoStorage, baseURL string, logger *zap.Logger) *PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &PhotoService{storage: storage, baseURL: baseURL, logger: logger}
}

// Store processes the uploaded photo and returns its public URL.
func (s *PhotoService) Store(r io.Reader) (string, error) {
	result, err := imaging.Process(r)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "photo must be a valid JPEG or PNG image")
	}

	filename := fmt.Sprintf("%s.jpg", uuid.NewString())
	if _, err := s.storage.Save(filename, result.Data); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
	}

	return path.Join(s.baseURL, filename), nil
}

// Remove deletes a stored photo given its public URL. Best effort: used to
// clean up when report creation fails after the upload succeeded.
func (s *PhotoService) Remove(photoURL string) {
	if photoURL == "" {
		return
	}
	filename := path.Base(photoURL)
	if err := s.storage.Delete(filename); err != nil {
		s.logger.Warn("failed to delete photo", zap.String("file", filename), zap.Error(err))
	}
}
