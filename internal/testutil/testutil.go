// Package testutil provides in-memory stores and request builders shared by
// package tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"absensi/internal/attendance"
	"absensi/internal/users"
)

// MemDB mimics the two tables, including the unique username index and the
// attendance-to-user join.
type MemDB struct {
	mu       sync.Mutex
	users    map[int64]users.User
	records  map[int64]attendance.Record
	nextUser int64
	nextRec  int64
	clock    time.Time

	// Err, when set, is returned by every store call.
	Err error
	// LookupDelay sleeps inside UsernameTaken to widen race windows.
	LookupDelay time.Duration
}

// NewMemDB returns an empty database.
func NewMemDB() *MemDB {
	return &MemDB{
		users:   map[int64]users.User{},
		records: map[int64]attendance.Record{},
		clock:   time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (m *MemDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// UserCount returns the number of user rows.
func (m *MemDB) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// RecordCount returns the number of attendance rows, orphans included.
func (m *MemDB) RecordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// UserByID returns a copy of a stored user.
func (m *MemDB) UserByID(id int64) (users.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

// Users returns a users.Store view.
func (m *MemDB) Users() *UserStore { return &UserStore{m} }

// Attendance returns an attendance.Store view.
func (m *MemDB) Attendance() *AttendanceStore { return &AttendanceStore{m} }

// UserStore implements users.Store.
type UserStore struct{ db *MemDB }

func (s *UserStore) List(ctx context.Context) ([]users.User, error) {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []users.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *UserStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	m := s.db
	m.mu.Lock()
	delay := m.LookupDelay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	u, err := s.GetByUsername(ctx, username)
	return u != nil, err
}

func (s *UserStore) Insert(ctx context.Context, u *users.User) error {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return users.ErrDuplicate
		}
	}
	m.nextUser++
	u.ID = m.nextUser
	u.CreatedAt = m.tick()
	m.users[u.ID] = *u
	return nil
}

func (s *UserStore) Update(ctx context.Context, id int64, username, kelas string, images *string) (int64, error) {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	for otherID, other := range m.users {
		if otherID != id && other.Username == username {
			return 0, users.ErrDuplicate
		}
	}
	u.Username, u.Kelas = username, kelas
	if images != nil {
		u.Images = *images
	}
	m.users[id] = u
	return 1, nil
}

func (s *UserStore) Delete(ctx context.Context, id int64) (int64, error) {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if _, ok := m.users[id]; !ok {
		return 0, nil
	}
	delete(m.users, id)
	return 1, nil
}

// AttendanceStore implements attendance.Store.
type AttendanceStore struct{ db *MemDB }

func (s *AttendanceStore) UserIDByUsername(ctx context.Context, username string) (int64, bool, error) {
	u, err := s.db.Users().GetByUsername(ctx, username)
	if err != nil || u == nil {
		return 0, false, err
	}
	return u.ID, true, nil
}

func (s *AttendanceStore) Insert(ctx context.Context, rec *attendance.Record) error {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.nextRec++
	rec.ID = m.nextRec
	rec.TimeAbsen = m.tick()
	stored := *rec
	stored.Username, stored.Kelas = "", ""
	m.records[rec.ID] = stored
	return nil
}

func (s *AttendanceStore) List(ctx context.Context, status string) ([]attendance.Record, error) {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []attendance.Record{}
	for _, rec := range m.records {
		u, ok := m.users[rec.UserID]
		if !ok {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		rec.Username, rec.Kelas = u.Username, u.Kelas
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeAbsen.After(out[j].TimeAbsen) })
	return out, nil
}

func (s *AttendanceStore) Delete(ctx context.Context, id int64) (int64, error) {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if _, ok := m.records[id]; !ok {
		return 0, nil
	}
	delete(m.records, id)
	return 1, nil
}

// Images is an in-memory users.ImageStore.
type Images struct {
	mu    sync.Mutex
	Saved []string
	Err   error
}

func (i *Images) Save(fh *multipart.FileHeader) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Err != nil {
		return "", i.Err
	}
	p := fmt.Sprintf("/uploads/image-%d-%s", len(i.Saved)+1, fh.Filename)
	i.Saved = append(i.Saved, p)
	return p, nil
}

// Count returns how many files were saved.
func (i *Images) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.Saved)
}

// FormFile builds a real *multipart.FileHeader for an image field.
func FormFile(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	body, boundary := MultipartBody(t, nil, "image", filename, contentType, content)
	form, err := multipart.NewReader(body, boundary).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

// MultipartBody encodes fields plus an optional file part. An empty filename
// omits the file.
func MultipartBody(t *testing.T, fields map[string]string, fileField, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if filename != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.Boundary()
}
