// ===============================
// internal/services/upload.go - Payment proof uploads to R2
// ===============================

package services

import (
	"context"
	"io"
	"net/http"
	"strings"

	"freezybe/internal/database"
	"freezybe/internal/models"
	"freezybe/internal/storage"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds 5MB")
	ErrUnsupportedFile    = errors.New("only jpg, png and webp images are accepted")
	ErrPaymentNotRequired = errors.New("payment proof is only needed for paid plans")
)

// ObjectStore keeps uploaded files. *storage.R2Client implements it.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.ReadSeeker, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type UploadService struct {
	db            *sqlx.DB
	store         ObjectStore
	notifications *NotificationService
	logger        *zap.Logger
}

// NewUploadService accepts a nil store, in which case uploads report
// ErrUploadsDisabled.
func NewUploadService(db *sqlx.DB, store ObjectStore, notifications *NotificationService, logger *zap.Logger) *UploadService {
	return &UploadService{db: db, store: store, notifications: notifications, logger: logger}
}

// PaymentProofUpload is one screenshot as received from the client.
type PaymentProofUpload struct {
	File     io.ReadSeeker
	Filename string
	Size     int64
}

// SubmitPaymentProof stores the screenshot for the user's current paid plan
// and tells admins it is waiting for review.
func (s *UploadService) SubmitPaymentProof(ctx context.Context, user *models.User, upload PaymentProofUpload) (*models.PaymentProof, error) {
	if s.store == nil {
		return nil, ErrUploadsDisabled
	}
	plan := user.Plan()
	if !plan.IsPaid() {
		return nil, ErrPaymentNotRequired
	}
	if upload.Size > models.MaxPaymentProofSize {
		return nil, ErrFileTooLarge
	}

	contentType, err := detectImage(upload.File, upload.Filename)
	if err != nil {
		return nil, err
	}

	proof := &models.PaymentProof{
		ID:     uuid.New().String(),
		UserID: user.UID,
		Plan:   plan,
		Status: models.PaymentProofSubmitted,
	}
	proof.FileKey = storage.PaymentProofKey(user.UID, proof.ID, getFileExtension(upload.Filename))
	proof.FileURL = s.store.URL(proof.FileKey)

	if err := s.store.Upload(ctx, proof.FileKey, upload.File, contentType); err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, `
			INSERT INTO payment_proofs (id, user_id, plan, file_key, file_url, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING submitted_at`,
			proof.ID, proof.UserID, string(proof.Plan), proof.FileKey, proof.FileURL, proof.Status).Scan(&proof.SubmittedAt)
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, proof.FileKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned payment proof", zap.String("key", proof.FileKey), zap.Error(delErr))
		}
		return nil, errors.Wrap(err, "failed to record payment proof")
	}

	if s.notifications != nil {
		if _, err := s.notifications.SendToAdmins(ctx, models.PaymentProofTemplate(user.GetDisplayName(), plan)); err != nil {
			s.logger.Warn("failed to notify admins of payment proof", zap.Error(err))
		}
	}

	s.logger.Info("payment proof submitted",
		zap.String("uid", user.UID),
		zap.String("plan", string(plan)),
		zap.String("key", proof.FileKey))
	return proof, nil
}

// detectImage sniffs the first bytes so a renamed file cannot pass as an
// image, then rewinds the reader.
func detectImage(file io.ReadSeeker, filename string) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrap(err, "failed to read upload")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "failed to rewind upload")
	}

	sniffed := http.DetectContentType(head[:n])
	expected := getContentType(getFileExtension(filename))
	if expected == "application/octet-stream" || sniffed != expected {
		return "", ErrUnsupportedFile
	}
	return expected, nil
}

func getFileExtension(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return strings.ToLower(filename[i:])
		}
	}
	return ""
}

func getContentType(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
