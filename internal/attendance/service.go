package attendance

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"absensi/internal/apperr"
	"absensi/internal/metrics"
	"absensi/internal/queue"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	// DefaultThreshold is the inclusive similarity score for a successful check-in.
	DefaultThreshold = 60.0
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	UserIDByUsername(ctx context.Context, username string) (int64, bool, error)
	Insert(ctx context.Context, rec *Record) error
	List(ctx context.Context, status string) ([]Record, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// SubmitInput is an attendance submission. Similarity is a pointer so an
// explicit zero is distinguishable from a missing value.
type SubmitInput struct {
	Username   string
	Location   string
	Similarity *float64
}

// Result is what a successful submission reports back.
type Result struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	Status     string  `json:"status"`
	Similarity float64 `json:"similarity"`
	Location   string  `json:"location"`
}

// Service records and queries attendance.
type Service struct {
	repo      Store
	threshold float64
	feed      queue.Publisher
	metrics   *metrics.Metrics
}

// NewService creates a service backed by a repository. feed may be nil.
func NewService(repo Store, threshold float64, feed queue.Publisher, m *metrics.Metrics) *Service {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Service{repo: repo, threshold: threshold, feed: feed, metrics: m}
}

// StatusFor derives the attendance status from a similarity score.
func StatusFor(similarity, threshold float64) string {
	if similarity >= threshold {
		return StatusSuccess
	}
	return StatusFailed
}

// Submit resolves the username and stores a record with the derived status.
// Lookup and insert are separate statements; a user deleted in between is
// not detected.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Result, error) {
	if in.Username == "" || in.Location == "" || in.Similarity == nil {
		return Result{}, apperr.Validation("username, location and similarity are required")
	}
	if math.IsNaN(*in.Similarity) || math.IsInf(*in.Similarity, 0) {
		return Result{}, apperr.Validation("similarity must be a number")
	}

	userID, ok, err := s.repo.UserIDByUsername(ctx, in.Username)
	if err != nil {
		return Result{}, apperr.Internal(err, "failed to save attendance")
	}
	if !ok {
		return Result{}, apperr.NotFound("user not found")
	}

	rec := &Record{
		UserID:   userID,
		Location: in.Location,
		Status:   StatusFor(*in.Similarity, s.threshold),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return Result{}, apperr.Internal(err, "failed to save attendance")
	}
	rec.Username = in.Username

	s.metrics.ObserveAttendance(rec.Status)
	s.publish(ctx, rec)

	return Result{
		ID:         rec.ID,
		UserID:     rec.UserID,
		Status:     rec.Status,
		Similarity: *in.Similarity,
		Location:   rec.Location,
	}, nil
}

// publish hands the record to the feed. Failures never fail the submission.
func (s *Service) publish(ctx context.Context, rec *Record) {
	if s.feed == nil {
		return
	}
	body, err := json.Marshal(rec)
	if err != nil {
		log.Warn().Err(err).Int64("record_id", rec.ID).Msg("encode feed message failed")
		s.metrics.FeedPublishFailed()
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.feed.Publish(ctx, queue.Message{Type: queue.TypeAttendanceCreated, Body: body}); err != nil {
		log.Warn().Err(err).Int64("record_id", rec.ID).Msg("feed publish failed")
		s.metrics.FeedPublishFailed()
	}
}

// List returns joined records, optionally restricted to one status.
func (s *Service) List(ctx context.Context, status string) ([]Record, error) {
	recs, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch attendance")
	}
	return recs, nil
}

// Delete removes a record unconditionally.
func (s *Service) Delete(ctx context.Context, id int64) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Internal(err, "failed to delete attendance")
	}
	log.Debug().Int64("record_id", id).Int64("affected", affected).Msg("attendance deleted")
	return nil
}
