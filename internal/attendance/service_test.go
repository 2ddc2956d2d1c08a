package attendance_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"absensi/internal/apperr"
	"absensi/internal/attendance"
	"absensi/internal/queue"
	"absensi/internal/testutil"
	"absensi/internal/users"
)

func ptr(f float64) *float64 { return &f }

// seedUser stores a user directly through the fake store.
func seedUser(t *testing.T, db *testutil.MemDB, username, kelas string) int64 {
	t.Helper()
	u := &users.User{Username: username, Kelas: kelas, Images: "/uploads/" + username + ".png"}
	if err := db.Users().Insert(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		similarity float64
		want       string
	}{
		{100, attendance.StatusSuccess},
		{60, attendance.StatusSuccess},
		{60.0001, attendance.StatusSuccess},
		{59.99, attendance.StatusFailed},
		{0, attendance.StatusFailed},
		{-5, attendance.StatusFailed},
	}
	for _, tt := range tests {
		if got := attendance.StatusFor(tt.similarity, attendance.DefaultThreshold); got != tt.want {
			t.Errorf("StatusFor(%v) = %q, want %q", tt.similarity, got, tt.want)
		}
	}
}

func TestSubmit(t *testing.T) {
	db := testutil.NewMemDB()
	userID := seedUser(t, db, "alice", "XII-1")
	svc := attendance.NewService(db.Attendance(), attendance.DefaultThreshold, nil, nil)

	tests := []struct {
		name       string
		similarity float64
		want       string
	}{
		{"at threshold", 60, attendance.StatusSuccess},
		{"just below", 59.99, attendance.StatusFailed},
		{"zero is a value", 0, attendance.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Submit(context.Background(), attendance.SubmitInput{
				Username:   "alice",
				Location:   "-6.2,106.8",
				Similarity: ptr(tt.similarity),
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if res.Status != tt.want {
				t.Errorf("Status = %q, want %q", res.Status, tt.want)
			}
			if res.UserID != userID || res.Similarity != tt.similarity || res.Location != "-6.2,106.8" || res.ID <= 0 {
				t.Errorf("unexpected result %+v", res)
			}
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	db := testutil.NewMemDB()
	seedUser(t, db, "alice", "X")
	svc := attendance.NewService(db.Attendance(), 0, nil, nil)

	for name, in := range map[string]attendance.SubmitInput{
		"missing similarity": {Username: "alice", Location: "gate"},
		"missing username":   {Location: "gate", Similarity: ptr(80)},
		"missing location":   {Username: "alice", Similarity: ptr(80)},
		"NaN similarity":     {Username: "alice", Location: "gate", Similarity: ptr(math.NaN())},
		"+Inf similarity":    {Username: "alice", Location: "gate", Similarity: ptr(math.Inf(1))},
		"-Inf similarity":    {Username: "alice", Location: "gate", Similarity: ptr(math.Inf(-1))},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), in)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("Submit = %v, want validation", err)
			}
		})
	}
	if db.RecordCount() != 0 {
		t.Errorf("expected no rows, got %d", db.RecordCount())
	}
}

func TestSubmitUnknownUser(t *testing.T) {
	db := testutil.NewMemDB()
	svc := attendance.NewService(db.Attendance(), 60, nil, nil)

	_, err := svc.Submit(context.Background(), attendance.SubmitInput{Username: "ghost", Location: "gate", Similarity: ptr(99)})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("Submit = %v, want not found", err)
	}
	if db.RecordCount() != 0 {
		t.Errorf("expected no rows written, got %d", db.RecordCount())
	}
}

func TestListFilterIsSubset(t *testing.T) {
	db := testutil.NewMemDB()
	seedUser(t, db, "alice", "X")
	seedUser(t, db, "bob", "Y")
	svc := attendance.NewService(db.Attendance(), 60, nil, nil)
	ctx := context.Background()

	for _, s := range []struct {
		user string
		sim  float64
	}{{"alice", 90}, {"bob", 10}, {"alice", 60}, {"bob", 75}} {
		if _, err := svc.Submit(ctx, attendance.SubmitInput{Username: s.user, Location: "gate", Similarity: ptr(s.sim)}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ok, err := svc.List(ctx, attendance.StatusSuccess)
	if err != nil {
		t.Fatalf("List success: %v", err)
	}
	if len(all) != 4 || len(ok) != 3 {
		t.Fatalf("len(all)=%d len(success)=%d", len(all), len(ok))
	}

	ids := map[int64]bool{}
	for _, r := range all {
		ids[r.ID] = true
	}
	for _, r := range ok {
		if r.Status != attendance.StatusSuccess {
			t.Errorf("filtered list contains %q", r.Status)
		}
		if !ids[r.ID] {
			t.Errorf("record %d missing from unfiltered list", r.ID)
		}
		if r.Username == "" || r.Kelas == "" {
			t.Errorf("record %d not joined with user: %+v", r.ID, r)
		}
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].TimeAbsen.Before(all[i].TimeAbsen) {
			t.Errorf("list not ordered newest first at %d", i)
		}
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	db := testutil.NewMemDB()
	seedUser(t, db, "alice", "X")
	svc := attendance.NewService(db.Attendance(), 60, nil, nil)
	ctx := context.Background()

	res, err := svc.Submit(ctx, attendance.SubmitInput{Username: "alice", Location: "gate", Similarity: ptr(70)})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.Delete(ctx, res.ID); err != nil {
			t.Fatalf("Delete #%d: %v", i, err)
		}
	}
	if db.RecordCount() != 0 {
		t.Errorf("record survived delete")
	}
}

func TestSubmitPublishesToFeed(t *testing.T) {
	db := testutil.NewMemDB()
	seedUser(t, db, "alice", "X")
	feed := queue.NewInMemory(1)
	svc := attendance.NewService(db.Attendance(), 60, feed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, _ := feed.Consume(ctx)

	res, err := svc.Submit(ctx, attendance.SubmitInput{Username: "alice", Location: "lab", Similarity: ptr(88)})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Type != queue.TypeAttendanceCreated {
			t.Errorf("Type = %q", msg.Type)
		}
		var rec attendance.Record
		if err := json.Unmarshal(msg.Body, &rec); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if rec.ID != res.ID || rec.Username != "alice" || rec.Status != attendance.StatusSuccess {
			t.Errorf("unexpected feed record %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("no feed message")
	}
}

type brokenFeed struct{}

func (brokenFeed) Publish(context.Context, queue.Message) error { return errors.New("redis down") }

func TestSubmitSurvivesFeedFailure(t *testing.T) {
	db := testutil.NewMemDB()
	seedUser(t, db, "alice", "X")
	svc := attendance.NewService(db.Attendance(), 60, brokenFeed{}, nil)

	if _, err := svc.Submit(context.Background(), attendance.SubmitInput{Username: "alice", Location: "lab", Similarity: ptr(10)}); err != nil {
		t.Fatalf("Submit should ignore feed errors: %v", err)
	}
	if db.RecordCount() != 1 {
		t.Errorf("expected stored record, got %d", db.RecordCount())
	}
}
