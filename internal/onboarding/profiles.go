package onboarding

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Profile is a finished onboarding record handed over on completion.
type Profile struct {
	VisitorID   string
	Answers     AnswerRecord
	CompletedAt time.Time
}

// Name is the answer to the name step.
func (p Profile) Name() string {
	return p.Answers["name"].Text
}

// ProfileSink receives the finished answers of a completed onboarding.
type ProfileSink interface {
	Save(ctx context.Context, visitorID string, answers AnswerRecord) error
}

// MemoryProfiles keeps the latest profile per visitor in memory. Profiles are lost on restart.
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	logger   *slog.Logger
	now      func() time.Time
}

func NewMemoryProfiles(logger *slog.Logger) *MemoryProfiles {
	return &MemoryProfiles{
		mu:       sync.RWMutex{},
		profiles: make(map[string]Profile),
		logger:   logger.With("source", "MemoryProfiles"),
		now:      time.Now,
	}
}

func (m *MemoryProfiles) Save(ctx context.Context, visitorID string, answers AnswerRecord) error {
	profile := Profile{
		VisitorID:   visitorID,
		Answers:     answers.Clone(),
		CompletedAt: m.now(),
	}
	m.mu.Lock()
	m.profiles[visitorID] = profile
	m.mu.Unlock()

	m.logger.LogAttrs(ctx, slog.LevelInfo, "onboarding complete",
		slog.Int("answers", len(answers)),
		slog.String("level", answers["level"].Text),
		slog.String("location", answers["location"].Text))
	return nil
}

// Get returns the latest profile of a visitor.
func (m *MemoryProfiles) Get(visitorID string) (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[visitorID]
	if !ok {
		return Profile{}, false
	}
	p.Answers = p.Answers.Clone()
	return p, true
}
