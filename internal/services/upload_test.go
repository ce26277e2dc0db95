package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"freezybe/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type memoryStore struct {
	objects map[string][]byte
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.ReadSeeker, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryStore) URL(key string) string {
	return "https://cdn.example.com/" + key
}

func proUser() *models.User {
	return &models.User{
		UID:            "u1",
		Name:           "Ali",
		SelectedPlan:   planPtr(models.PlanPro),
		ApprovalStatus: statusPtr(models.ApprovalPending),
	}
}

func TestUploadService_SubmitPaymentProofGuards(t *testing.T) {
	db, _ := newMockDB(t)
	png := func() PaymentProofUpload {
		return PaymentProofUpload{File: bytes.NewReader(pngHeader), Filename: "proof.png", Size: int64(len(pngHeader))}
	}

	t.Run("uploads disabled", func(t *testing.T) {
		s := NewUploadService(db, nil, nil, nopLogger())
		_, err := s.SubmitPaymentProof(bg, proUser(), png())
		assert.ErrorIs(t, err, ErrUploadsDisabled)
	})

	t.Run("free plan", func(t *testing.T) {
		s := NewUploadService(db, newMemoryStore(), nil, nopLogger())
		user := proUser()
		user.SelectedPlan = planPtr(models.PlanFree)
		_, err := s.SubmitPaymentProof(bg, user, png())
		assert.ErrorIs(t, err, ErrPaymentNotRequired)
	})

	t.Run("too large", func(t *testing.T) {
		s := NewUploadService(db, newMemoryStore(), nil, nopLogger())
		upload := png()
		upload.Size = models.MaxPaymentProofSize + 1
		_, err := s.SubmitPaymentProof(bg, proUser(), upload)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("renamed text file", func(t *testing.T) {
		store := newMemoryStore()
		s := NewUploadService(db, store, nil, nopLogger())
		_, err := s.SubmitPaymentProof(bg, proUser(), PaymentProofUpload{
			File:     strings.NewReader("definitely not an image"),
			Filename: "proof.png",
			Size:     23,
		})
		assert.ErrorIs(t, err, ErrUnsupportedFile)
		assert.Empty(t, store.objects)
	})
}

func TestUploadService_SubmitPaymentProof(t *testing.T) {
	db, mock := newMockDB(t)
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	s := NewUploadService(db, store, NewNotificationService(db, notifier, nopLogger()), nopLogger())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO payment_proofs").
		WithArgs(sqlmock.AnyArg(), "u1", "pro", sqlmock.AnyArg(), sqlmock.AnyArg(), models.PaymentProofSubmitted).
		WillReturnRows(sqlmock.NewRows([]string{"submitted_at"}).AddRow(testNow))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT uid FROM users WHERE user_type = 'admin'").
		WillReturnRows(sqlmock.NewRows([]string{"uid"}).AddRow("admin-1"))
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow))

	proof, err := s.SubmitPaymentProof(bg, proUser(), PaymentProofUpload{
		File:     bytes.NewReader(pngHeader),
		Filename: "Screenshot.PNG",
		Size:     int64(len(pngHeader)),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(proof.FileKey, "payment-proofs/u1/"))
	assert.True(t, strings.HasSuffix(proof.FileKey, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+proof.FileKey, proof.FileURL)
	assert.Equal(t, testNow, proof.SubmittedAt)
	assert.Equal(t, pngHeader, store.objects[proof.FileKey])

	require.Len(t, notifier.pushed, 1)
	assert.Equal(t, "admin-1", notifier.pushed[0].UserID)
}

func TestUploadService_SubmitPaymentProofRemovesOrphan(t *testing.T) {
	db, mock := newMockDB(t)
	store := newMemoryStore()
	s := NewUploadService(db, store, nil, nopLogger())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO payment_proofs").WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	_, err := s.SubmitPaymentProof(bg, proUser(), PaymentProofUpload{
		File:     bytes.NewReader(pngHeader),
		Filename: "proof.png",
		Size:     int64(len(pngHeader)),
	})
	require.Error(t, err)
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, store.objects)
}

func TestGetContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", getContentType(getFileExtension("a.JPEG")))
	assert.Equal(t, "image/webp", getContentType(getFileExtension("b.webp")))
	assert.Equal(t, "application/octet-stream", getContentType(getFileExtension("c.pdf")))
	assert.Equal(t, "", getFileExtension("noext"))
}
