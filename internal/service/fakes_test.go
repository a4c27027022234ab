package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"compdash/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memoryTeamRepo is an in-memory TeamRepository
type memoryTeamRepo struct {
	mu        sync.Mutex
	teams     map[string]domain.Team
	findCalls int
	getErr    error
}

func newMemoryTeamRepo(teams ...domain.Team) *memoryTeamRepo {
	r := &memoryTeamRepo{teams: make(map[string]domain.Team)}
	for _, t := range teams {
		r.teams[t.Name] = t
	}
	return r
}

func (r *memoryTeamRepo) FindByMemberEmail(ctx context.Context, email string) ([]domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++

	var out []domain.Team
	for _, t := range r.teams {
		if t.HasMember(email) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryTeamRepo) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	t, ok := r.teams[name]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memoryTeamRepo) Upsert(ctx context.Context, team *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[team.Name] = *team
	return nil
}

// memorySubmissionRepo is an in-memory SubmissionRepository
type memorySubmissionRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*domain.Submission
	clock     time.Time
	createErr error
}

func newMemorySubmissionRepo() *memorySubmissionRepo {
	return &memorySubmissionRepo{
		records: make(map[uuid.UUID]*domain.Submission),
		clock:   time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC),
	}
}

func (r *memorySubmissionRepo) Create(ctx context.Context, s *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.clock = r.clock.Add(time.Minute)
	s.Timestamp = r.clock
	cp := *s
	r.records[s.ID] = &cp
	return nil
}

func (r *memorySubmissionRepo) List(ctx context.Context, teamName string, kind domain.Kind) ([]*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Submission{}
	for _, s := range r.records {
		if s.TeamName == teamName && s.Kind() == kind {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *memorySubmissionRepo) Get(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok || s.Kind() != kind {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memorySubmissionRepo) Delete(ctx context.Context, kind domain.Kind, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok || s.Kind() != kind {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

func (r *memorySubmissionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// fakeStorage records uploads and removals
type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	removed   []string
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if _, exists := f.objects[path]; exists {
		return fmt.Errorf("object %s already exists", path)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[path] = data
	f.types[path] = contentType
	return nil
}

func (f *fakeStorage) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeStorage) PublicURL(path string) string {
	return "https://storage.test/public/" + path
}

func (f *fakeStorage) uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type mockVideoVerifier struct {
	mock.Mock
}

func (m *mockVideoVerifier) VerifyVideo(ctx context.Context, link string) (*domain.VideoInfo, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VideoInfo), args.Error(1)
}

func alphaTeam() domain.Team {
	return domain.Team{
		Name: "Alpha",
		Slots: []domain.MemberSlot{
			{Role: domain.SlotTeacher, Name: "Ada", Email: "t@x.com"},
			{Role: domain.SlotMember1, Name: "Ben", Email: "p1@x.com"},
			{Role: domain.SlotMember2, Name: "Cy", Email: "p2@x.com"},
			{Role: domain.SlotMember3, Name: "Di", Email: "p3@x.com"},
		},
	}
}

func betaTeam() domain.Team {
	return domain.Team{
		Name: "Beta",
		Slots: []domain.MemberSlot{
			{Role: domain.SlotTeacher, Name: "Bo", Email: "b@x.com"},
			{Role: domain.SlotMember1, Name: "Bea", Email: "shared@x.com"},
		},
	}
}

func gammaTeam() domain.Team {
	return domain.Team{
		Name: "Gamma",
		Slots: []domain.MemberSlot{
			{Role: domain.SlotTeacher, Name: "Gus", Email: "shared@x.com"},
		},
	}
}

// pngBytes is enough of a PNG for content sniffing
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
